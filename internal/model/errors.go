package model

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Every error returned by a pipeline stage wraps exactly one of these.
var (
	ErrMalformedURL            = errors.New("malformed job URL")
	ErrMissingCredential       = errors.New("missing access credential")
	ErrProjectNotFound         = errors.New("project not found")
	ErrArtifactDownloadFailed  = errors.New("artifact download failed")
	ErrKubeconfigNotFound      = errors.New("kubeconfig not found in artifacts")
	ErrInvalidKubeConfig       = errors.New("invalid kubeconfig")
	ErrNoContextFound          = errors.New("no context found")
	ErrClusterNotFound         = errors.New("cluster not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrRebuildValidationFailed = errors.New("rebuilt kubeconfig failed validation")
	ErrMergeFailed             = errors.New("merge failed")
)

// StageError names the pipeline stage a failure came from
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
