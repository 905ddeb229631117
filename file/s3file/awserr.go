// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	awsrequest "github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/grailbio/pubfetch/errors"
)

// annotate interprets err as an AWS request error and returns a version of it
// annotated with severity and kind from the errors package. The optional args
// are passed to errors.E.
func annotate(err error, ids s3RequestIDs, args ...interface{}) error {
	e := func(prefixArgs ...interface{}) error {
		msgs := append(prefixArgs, args...)
		if ids.amzRequestID != "" {
			msgs = append(msgs, "awsrequestID:", ids.String())
		}
		return errors.E(msgs...)
	}
	aerr, ok := getAWSError(err)
	if !ok {
		return e(err)
	}
	if awsrequest.IsErrorThrottle(err) {
		return e(err, errors.Temporary, errors.Unavailable)
	}
	switch aerr.Code() {
	case awsrequest.CanceledErrorCode:
		return e(err, errors.Canceled)
	// Code NotFound is not documented, but it's what HeadObject actually returns.
	case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NoSuchVersion", "NotFound":
		return e(err, errors.NotExist)
	case "AccessDenied", "Forbidden":
		return e(err, errors.NotAllowed)
	case "InvalidRequest", "InvalidArgument", "InvalidRange", "KeyTooLong", "MethodNotAllowed":
		return e(err, errors.Invalid, errors.Fatal)
	case "ExpiredToken", "AccountProblem", "ServiceUnavailable", "TokenRefreshRequired", "OperationAborted":
		return e(err, errors.Unavailable)
	case "PreconditionFailed":
		return e(err, errors.Precondition)
	case "SlowDown":
		return e(err, errors.Temporary, errors.Unavailable)
	}
	if awsrequest.IsErrorRetryable(err) {
		return e(err, errors.Temporary)
	}
	return e(err)
}

func getAWSError(err error) (awsError awserr.Error, found bool) {
	errors.Visit(err, func(err error) {
		if err == nil || awsError != nil {
			return
		}
		if e, ok := err.(awserr.Error); ok {
			found = true
			awsError = e
		}
	})
	return
}

type s3RequestIDs struct {
	amzRequestID string
	amzID2       string
}

func (ids s3RequestIDs) String() string {
	return fmt.Sprintf("x-amz-request-id: %s, x-amz-id-2: %s", ids.amzRequestID, ids.amzID2)
}

// withResponseHeader is awsrequest.WithGetResponseHeader, except that it
// doesn't crash when the request fails w/o receiving an HTTP response.
func withResponseHeader(key string, val *string) awsrequest.Option {
	return func(r *awsrequest.Request) {
		r.Handlers.Complete.PushBack(func(req *awsrequest.Request) {
			*val = "(no HTTP response)"
			if req.HTTPResponse != nil && req.HTTPResponse.Header != nil {
				*val = req.HTTPResponse.Header.Get(key)
			}
		})
	}
}

// captureOption records the request IDs of a call into ids, for error
// messages.
func (ids *s3RequestIDs) captureOption() awsrequest.Option {
	h0 := withResponseHeader("x-amz-request-id", &ids.amzRequestID)
	h1 := withResponseHeader("x-amz-id-2", &ids.amzID2)
	return func(r *awsrequest.Request) {
		h0(r)
		h1(r)
	}
}
