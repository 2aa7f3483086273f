package Offsets

import (
	"github.com/mkocikowski/libkafka07/api"
	"github.com/pkg/errors"
)

type Response struct {
	ErrorCode int16
	Offsets   []int64 // int32 count followed by int64 offsets, newest first
}

// ParseResponse reads the offsets only when the error code is 0.
func ParseResponse(r *api.Response) (*Response, error) {
	resp := &Response{ErrorCode: r.ErrorCode()}
	if resp.ErrorCode != 0 {
		return resp, nil
	}
	if err := r.Unmarshal(&resp.Offsets); err != nil {
		return nil, errors.Wrap(err, "error parsing offsets")
	}
	return resp, nil
}
