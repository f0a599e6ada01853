package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

// findSort 取出 find 命令的排序条件，形如 ["timestamp:1", "_id:1"]
func findSort(mt *mtest.T) []string {
	mt.Helper()
	for evt := mt.GetStartedEvent(); evt != nil; evt = mt.GetStartedEvent() {
		if evt.CommandName != "find" {
			continue
		}
		elems, err := evt.Command.Lookup("sort").Document().Elements()
		require.NoError(mt, err)
		res := make([]string, 0, len(elems))
		for _, e := range elems {
			res = append(res, fmt.Sprintf("%s:%d", e.Key(), e.Value().AsInt64()))
		}
		return res
	}
	mt.Fatal("find command not issued")
	return nil
}

func directMessage(from, to string, at time.Time) *Message {
	unread := false
	return &Message{
		ID:          primitive.NewObjectID(),
		MessageType: MessageTypeUser,
		SenderID:    from,
		SenderModel: SenderModelUser,
		ReceiverID:  to,
		Ciphertext:  "00ff",
		IV:          "00000000000000000000000000000000",
		IsRead:      &unread,
		IsSent:      true,
		Timestamp:   at,
	}
}

func TestMessage_Validate(t *testing.T) {
	now := time.Now()
	ok := directMessage("a", "b", now)
	assert.NoError(t, ok.Validate())

	noIV := directMessage("a", "b", now)
	noIV.IV = ""
	assert.ErrorIs(t, noIV.Validate(), ErrInvalidMessage)

	mixed := directMessage("a", "b", now)
	mixed.GroupID = "g1"
	assert.ErrorIs(t, mixed.Validate(), ErrInvalidMessage)

	broadcast := &Message{
		MessageType: MessageTypeAdmin,
		SenderID:    "admin",
		SenderModel: SenderModelAdmin,
		GroupID:     "g1",
		GroupName:   "Group 1",
		Ciphertext:  "00ff",
		IV:          "00",
	}
	assert.NoError(t, broadcast.Validate())

	broadcast.GroupName = ""
	assert.ErrorIs(t, broadcast.Validate(), ErrInvalidMessage)
}

func TestMessageRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "herald." + MessageCollection

	mt.Run("save assigns id", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		msg := directMessage("a", "b", time.Now())
		msg.ID = primitive.NilObjectID
		require.NoError(mt, repo.SaveMessage(context.Background(), msg))
		assert.False(mt, msg.ID.IsZero())
	})

	mt.Run("save rejects invalid record", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		msg := directMessage("a", "", time.Now())
		assert.ErrorIs(mt, repo.SaveMessage(context.Background(), msg), ErrInvalidMessage)
	})

	mt.Run("save duplicate key", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.SaveMessage(context.Background(), directMessage("a", "b", time.Now()))
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("find conversation ascending", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		base := time.Now().Truncate(time.Millisecond).UTC()
		first := directMessage("a", "b", base)
		second := directMessage("b", "a", base.Add(time.Second))

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, first), toDoc(mt.T, second)),
		)

		list, total, err := repo.FindConversation(context.Background(), ConversationQuery{
			UserA: "a",
			UserB: "b",
			Limit: 20,
		})
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, total)
		require.Len(mt, list, 2)
		assert.Equal(mt, first.ID, list[0].ID)
		assert.Equal(mt, second.ID, list[1].ID)
		assert.False(mt, list[1].Timestamp.Before(list[0].Timestamp))
		assert.Equal(mt, "00ff", list[0].Ciphertext)
		assert.Equal(mt, []string{"timestamp:1", "_id:1"}, findSort(mt))
	})

	mt.Run("mark conversation read", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(2)},
			bson.E{Key: "nModified", Value: int32(2)},
		))

		n, err := repo.MarkConversationRead(context.Background(), "b", "a")
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})

	mt.Run("mark sent twice", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}, bson.E{Key: "nModified", Value: int32(1)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
		)

		id := primitive.NewObjectID()
		assert.NoError(mt, repo.MarkSent(context.Background(), id))
		assert.ErrorIs(mt, repo.MarkSent(context.Background(), id), mongo.ErrNoDocuments)
	})

	mt.Run("due broadcasts", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		at := time.Now().Add(-time.Minute).Truncate(time.Millisecond).UTC()
		due := &Message{
			ID:            primitive.NewObjectID(),
			MessageType:   MessageTypeAdmin,
			SenderID:      "admin",
			SenderModel:   SenderModelAdmin,
			GroupID:       "g1",
			GroupName:     "Group 1",
			Ciphertext:    "00ff",
			IV:            "00",
			ScheduledTime: &at,
			Timestamp:     at,
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, due)))

		list, err := repo.FindDueBroadcasts(context.Background(), time.Now(), 10)
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		assert.False(mt, list[0].IsSent)
		require.NotNil(mt, list[0].ScheduledTime)
		assert.True(mt, list[0].ScheduledTime.Equal(at))
		assert.Equal(mt, []string{"scheduledTime:1", "_id:1"}, findSort(mt))
	})

	mt.Run("broadcasts newest first", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		list, err := repo.FindBroadcasts(context.Background(), BroadcastQuery{SenderID: "admin", Limit: 10})
		require.NoError(mt, err)
		assert.Empty(mt, list)
		assert.Equal(mt, []string{"timestamp:-1", "_id:-1"}, findSort(mt))
	})

	mt.Run("contact ids", func(mt *mtest.T) {
		repo := NewMessageRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"c", "b"}}),
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"c", "d", "a"}}),
		)

		ids, err := repo.FindContactIDs(context.Background(), "a")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"b", "c", "d"}, ids)
	})
}
