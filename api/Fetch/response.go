package Fetch

import (
	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/message"
)

type Response struct {
	ErrorCode  int16
	MessageSet message.Set
}

func ParseResponse(r *api.Response) *Response {
	return &Response{
		ErrorCode:  r.ErrorCode(),
		MessageSet: r.Payload(),
	}
}
