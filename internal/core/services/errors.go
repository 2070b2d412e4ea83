package services

import "errors"

// Zone errors
var (
	ErrZoneNotFound      = errors.New("zone: not found")
	ErrZoneAlreadyExists = errors.New("zone: name already exists")
	ErrZoneInvalidInput  = errors.New("zone: invalid input")
)

// Link errors
var (
	ErrLinkNotFound     = errors.New("link: not found")
	ErrLinkInUse        = errors.New("link: assigned to a zone")
	ErrLinkInvalidInput = errors.New("link: invalid input")
)

// Artifact errors
var (
	ErrArtifactNotFound     = errors.New("artifact: not found")
	ErrArtifactInvalidInput = errors.New("artifact: invalid input")
	ErrDatasetUnknown       = errors.New("artifact: dataset is not configured")
)
