package dto

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageQuery 分页参数，缺省时使用默认页大小
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}
