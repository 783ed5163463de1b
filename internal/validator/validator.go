// Package validator is the boundary to the external AI judge that decides
// whether a suggestion should be applied.
package validator

import (
	"context"
	"fmt"

	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/textdiff"
	"github.com/sirupsen/logrus"
)

// UnavailableReason prefixes the reason of verdicts synthesized when the judge
// could not be reached.
const UnavailableReason = "validation service temporarily unavailable, please retry later"

// Request is what the judge sees of a suggestion.
type Request struct {
	DocumentTitle   string
	DocumentContent string
	Category        model.Category
	Details         string
	SubmitterID     string
}

// Verdict is the typed result of a judge call. RawResponse is kept for audit
// and never inspected by the pipeline.
type Verdict struct {
	IsValid        bool
	Reason         string
	UpdatedContent *string
	Diff           *string
	Description    *string
	RawResponse    string
	// Unavailable marks verdicts synthesized after a failed call.
	Unavailable bool
	// Deferred marks verdicts returned without calling the judge because local
	// capacity ran out before the caller's deadline. The caller should retry.
	Deferred bool
}

// Validator calls the judge. Implementations never fail: transport errors are
// folded into an Unavailable verdict.
type Validator interface {
	Validate(ctx context.Context, req Request) Verdict
}

// Func adapts a function to Validator.
type Func func(ctx context.Context, req Request) Verdict

func (f Func) Validate(ctx context.Context, req Request) Verdict {
	return f(ctx, req)
}

// Unavailable builds the verdict recorded when the judge errored or timed out.
func Unavailable(err error) Verdict {
	logrus.Warnf("validation service unavailable: %v", err)
	return Verdict{
		IsValid:     false,
		Reason:      fmt.Sprintf("%s (%v)", UnavailableReason, err),
		Unavailable: true,
	}
}

// Defer builds the verdict returned when the judge was never called.
func Defer(err error) Verdict {
	logrus.Infof("judge call deferred: %v", err)
	return Verdict{
		IsValid:  false,
		Reason:   err.Error(),
		Deferred: true,
	}
}

// Normalize fills in the diff of a verdict that proposes content without one.
func Normalize(req Request, v Verdict) Verdict {
	if !v.IsValid || v.UpdatedContent == nil || (v.Diff != nil && *v.Diff != "") {
		return v
	}

	unified, err := textdiff.Unified("content", req.DocumentContent, *v.UpdatedContent)
	if err != nil {
		logrus.Warnf("could not diff proposed content: %v", err)
		return v
	}

	v.Diff = &unified
	return v
}
