// Package expression resolves late-bound #{...} expressions in component properties
// against the running step.
package expression

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

// Regular expression pattern: Captures the form #{...}
var expressionPattern = regexp.MustCompile(`\#\{(.+?)\}`)

// Resolves the format jobParameters['key']
var jobParamsPattern = regexp.MustCompile(`^jobParameters\['(.+?)'\]$`)

// IsExpression reports whether s contains a #{...} expression.
func IsExpression(s string) bool {
	return expressionPattern.MatchString(s)
}

// Resolve replaces every #{...} in expr using the StepExecution carried by ctx.
// Supported forms are jobParameters['key'], jobExecution.id, jobExecution.jobName,
// jobInstance.id and stepExecution.stepName.
//
// Returns:
//
//	expr unchanged when it holds no expression, or an error naming the first
//	expression that could not be resolved.
func Resolve(ctx context.Context, expr string) (string, error) {
	if !IsExpression(expr) {
		return expr, nil
	}
	se := port.StepExecutionFromContext(ctx)
	if se == nil || se.JobExecution == nil {
		return "", exception.NewBatchErrorf("expression", "cannot resolve '%s' outside a running step", expr)
	}

	var firstErr error
	resolved := expressionPattern.ReplaceAllStringFunc(expr, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-1])
		val, err := resolveOne(inner, se)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", exception.NewBatchError("expression", fmt.Sprintf("failed to resolve '%s'", expr), firstErr, false, false)
	}
	return resolved, nil
}

func resolveOne(inner string, se *model.StepExecution) (string, error) {
	je := se.JobExecution
	if m := jobParamsPattern.FindStringSubmatch(inner); len(m) == 2 {
		p, ok := je.Parameters.Get(m[1])
		if !ok {
			return "", fmt.Errorf("key '%s' not found in JobParameters", m[1])
		}
		return p.String(), nil
	}
	switch inner {
	case "jobExecution.id":
		return je.ID, nil
	case "jobExecution.jobName":
		return je.JobName, nil
	case "jobInstance.id":
		return je.JobInstanceID, nil
	case "stepExecution.stepName":
		return se.StepName, nil
	}
	return "", fmt.Errorf("unknown expression: %s", inner)
}
