package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the failure classification the retry policy keys on.
type Kind int

const (
	// KindOther is an unclassified failure. Never retried.
	KindOther Kind = iota
	// KindTransientNetwork marks failures worth retrying: DNS outages,
	// dropped connections, remote tile reads that failed mid-block.
	KindTransientNetwork
	// KindResource marks local exhaustion (disk, memory). Retrying
	// cannot help until the operator intervenes.
	KindResource
	// KindConfig marks bad input: malformed descriptors, unknown SRS.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindResource:
		return "resource"
	case KindConfig:
		return "config"
	default:
		return "other"
	}
}

// Error is a classified engine failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from an error chain. Plain errors
// are KindOther.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindOther
}

// Classifier assigns a Kind to a backend failure.
type Classifier interface {
	Classify(err error) Kind
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) Kind

func (f ClassifierFunc) Classify(err error) Kind { return f(err) }

// Known failure signatures for backends that only report errors as text.
var (
	resourceSignatures = []string{
		"no space left on device",
		"disk full",
	}
	transientSignatures = []string{
		"could not resolve host",
		"ireadblock failed",
		"connection reset",
		"timed out",
	}
)

// MessageClassifier classifies by error message signature. Resource
// signatures win over transient ones so a full disk is never retried.
func MessageClassifier() Classifier {
	return ClassifierFunc(func(err error) Kind {
		if err == nil {
			return KindOther
		}
		msg := strings.ToLower(err.Error())
		for _, sig := range resourceSignatures {
			if strings.Contains(msg, sig) {
				return KindResource
			}
		}
		for _, sig := range transientSignatures {
			if strings.Contains(msg, sig) {
				return KindTransientNetwork
			}
		}
		return KindOther
	})
}
