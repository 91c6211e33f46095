package blockview

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLookupNotLoaded is returned by Lookup queries issued before Load.
	ErrLookupNotLoaded = errors.New("lookup context not loaded")
	// ErrSceneClosed is returned by Scene operations after Close.
	ErrSceneClosed = errors.New("scene closed")
)

// AssetLoadError reports a missing or malformed asset document or image.
type AssetLoadError struct {
	URI string
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load asset %q: %v", e.URI, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// NoMatchingVariantError means no variant key matched any of the block's tags.
type NoMatchingVariantError struct {
	Block string
	Tags  []string
}

func (e *NoMatchingVariantError) Error() string {
	return fmt.Sprintf("block %q: no variant matches tags [%s]", e.Block, strings.Join(quoteAll(e.Tags), ", "))
}

type UnresolvedTextureReferenceError struct {
	Model string
	Ref   string
}

func (e *UnresolvedTextureReferenceError) Error() string {
	return fmt.Sprintf("model %q: unresolved texture reference %q", e.Model, e.Ref)
}

// IncompleteModelError means the flattened model chain never declared elements.
type IncompleteModelError struct {
	Model string
}

func (e *IncompleteModelError) Error() string {
	return fmt.Sprintf("model %q: no elements after flattening", e.Model)
}

type InvalidBlockStateError struct {
	Block  string
	Reason string
}

func (e *InvalidBlockStateError) Error() string {
	return fmt.Sprintf("block state %q: %s", e.Block, e.Reason)
}

// TooManyPartsError guards parent chains and multipart fan-out.
type TooManyPartsError struct {
	What  string
	Count int
	Limit int
}

func (e *TooManyPartsError) Error() string {
	return fmt.Sprintf("%s: %d exceeds limit %d", e.What, e.Count, e.Limit)
}

// ErrorKind names the failure class of err for diagnostics.
func ErrorKind(err error) string {
	var (
		assetErr   *AssetLoadError
		variantErr *NoMatchingVariantError
		texErr     *UnresolvedTextureReferenceError
		modelErr   *IncompleteModelError
		stateErr   *InvalidBlockStateError
		partsErr   *TooManyPartsError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &variantErr):
		return "no_matching_variant"
	case errors.As(err, &texErr):
		return "unresolved_texture_reference"
	case errors.As(err, &modelErr):
		return "incomplete_model"
	case errors.As(err, &stateErr):
		return "invalid_block_state"
	case errors.As(err, &partsErr):
		return "too_many_parts"
	case errors.As(err, &assetErr):
		return "asset_load"
	case errors.Is(err, ErrLookupNotLoaded):
		return "lookup_not_loaded"
	default:
		return "other"
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
