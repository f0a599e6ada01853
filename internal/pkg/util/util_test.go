package util

import (
	"Herald/internal/pkg/consts"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizePage(t *testing.T) {
	page, size, offset := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
	assert.EqualValues(t, 0, offset)

	page, size, offset = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
	assert.EqualValues(t, 200, offset)

	page, _, offset = NormalizePage(math.MaxInt, 100)
	assert.Equal(t, consts.MaxPage, page)
	assert.EqualValues(t, int64(consts.MaxPage-1)*100, offset)
	assert.Positive(t, offset)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitIDs(" a, b,,a ,c"))
	assert.Empty(t, SplitIDs(" , "))
}

func TestValidateDTO(t *testing.T) {
	type req struct {
		ID   string `validate:"required"`
		Role string `validate:"oneof=user member group"`
	}
	assert.NoError(t, ValidateDTO(&req{ID: "x", Role: "user"}))
	assert.Error(t, ValidateDTO(&req{Role: "user"}))
	assert.Error(t, ValidateDTO(&req{ID: "x", Role: "admin"}))
}

func TestCopyModel(t *testing.T) {
	type src struct {
		ID        primitive.ObjectID
		Message   string
		CreatedAt time.Time
	}
	type dst struct {
		ID        string
		Message   string
		CreatedAt time.Time
	}
	id := primitive.NewObjectID()
	now := time.Now()

	var out dst
	require.NoError(t, CopyModel(&out, &src{ID: id, Message: "m", CreatedAt: now}))
	assert.Equal(t, id.Hex(), out.ID)
	assert.Equal(t, "m", out.Message)
	assert.True(t, now.Equal(out.CreatedAt))
}
