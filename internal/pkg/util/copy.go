package util

import (
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: primitive.ObjectID{},
			DstType: copier.String,
			Fn: func(src interface{}) (interface{}, error) {
				return src.(primitive.ObjectID).Hex(), nil
			},
		},
	},
}

// CopyModel 存储模型转 DTO，ObjectID 转为十六进制字符串
func CopyModel(to, from any) error {
	return copier.CopyWithOption(to, from, copyOption)
}
