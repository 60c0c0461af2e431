package parser

import (
	"fmt"
	"log/slog"

	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/pkg/model"
)

// Validator performs semantic validation on a parsed Scenario.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logging.Component(logger, "validator")}
}

// Validate checks the structural invariants the engine relies on.
// Returns nil if valid, or a *model.Error with one FieldError per problem.
func (v *Validator) Validate(sc *model.Scenario, maxPriority int) *model.Error {
	var errs []model.FieldError

	totals := make(map[int]int, len(sc.Resources))
	errs = append(errs, v.validateResources(sc, totals)...)
	errs = append(errs, v.validateTasks(sc, totals, maxPriority)...)

	if len(errs) == 0 {
		return nil
	}
	v.logger.Debug("scenario rejected", "problems", len(errs))
	return model.NewValidationError("scenario validation failed", errs...)
}

// validateResources fills totals as a side effect.
func (v *Validator) validateResources(sc *model.Scenario, totals map[int]int) []model.FieldError {
	var errs []model.FieldError
	for _, r := range sc.Resources {
		field := fmt.Sprintf("resources.R%d", r.ID)
		if _, dup := totals[r.ID]; dup {
			errs = append(errs, model.FieldError{Field: field, Message: "duplicate resource id"})
			continue
		}
		if r.Instances < 0 {
			errs = append(errs, model.FieldError{
				Field:   field + ".instances",
				Message: fmt.Sprintf("instances must be >= 0, got %d", r.Instances),
			})
		}
		totals[r.ID] = r.Instances
	}
	return errs
}

func (v *Validator) validateTasks(sc *model.Scenario, totals map[int]int, maxPriority int) []model.FieldError {
	var errs []model.FieldError
	seen := make(map[int]bool, len(sc.Tasks))

	for _, t := range sc.Tasks {
		field := "tasks." + model.TaskLabel(t.ID)
		if t.ID <= model.IdleTaskID {
			errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf("task id must be positive, got %d", t.ID)})
		}
		if seen[t.ID] {
			errs = append(errs, model.FieldError{Field: field, Message: "duplicate task id"})
			continue
		}
		seen[t.ID] = true

		if t.Arrival < 0 {
			errs = append(errs, model.FieldError{
				Field:   field + ".arrival",
				Message: fmt.Sprintf("arrival must be >= 0, got %d", t.Arrival),
			})
		}
		if t.Priority < 0 || t.Priority > maxPriority {
			errs = append(errs, model.FieldError{
				Field:   field + ".priority",
				Message: fmt.Sprintf("priority must be in [0, %d], got %d", maxPriority, t.Priority),
			})
		}
		errs = append(errs, v.validateBursts(field, t.Bursts, totals)...)
	}
	return errs
}

func (v *Validator) validateBursts(field string, bursts []model.Burst, totals map[int]int) []model.FieldError {
	if len(bursts) == 0 {
		return []model.FieldError{{Field: field + ".bursts", Message: "task must have at least one burst"}}
	}

	var errs []model.FieldError
	if bursts[0].Kind != model.BurstCPU {
		errs = append(errs, model.FieldError{Field: field + ".bursts[0]", Message: "first burst must be CPU"})
	}
	if last := len(bursts) - 1; bursts[last].Kind != model.BurstCPU {
		errs = append(errs, model.FieldError{Field: fmt.Sprintf("%s.bursts[%d]", field, last), Message: "last burst must be CPU"})
	}

	for i, b := range bursts {
		bf := fmt.Sprintf("%s.bursts[%d]", field, i)
		switch b.Kind {
		case model.BurstIO:
			if i > 0 && bursts[i-1].Kind == model.BurstIO {
				errs = append(errs, model.FieldError{Field: bf, Message: "consecutive IO bursts"})
			}
			if b.Duration < 1 {
				errs = append(errs, model.FieldError{Field: bf, Message: fmt.Sprintf("IO duration must be >= 1, got %d", b.Duration)})
			}
		case model.BurstCPU:
			if len(b.Actions) == 0 {
				errs = append(errs, model.FieldError{Field: bf, Message: "CPU burst is empty"})
			}
			for j, a := range b.Actions {
				errs = append(errs, validateAction(fmt.Sprintf("%s[%d]", bf, j), a, totals)...)
			}
		default:
			errs = append(errs, model.FieldError{Field: bf, Message: fmt.Sprintf("unknown burst kind %q", b.Kind)})
		}
	}
	return errs
}

func validateAction(field string, a model.Action, totals map[int]int) []model.FieldError {
	switch a.Kind {
	case model.ActionRun:
		if a.Duration < 1 {
			return []model.FieldError{{Field: field, Message: fmt.Sprintf("run duration must be >= 1, got %d", a.Duration)}}
		}
		return nil
	case model.ActionRequest, model.ActionRelease:
	default:
		return []model.FieldError{{Field: field, Message: fmt.Sprintf("unknown action kind %q", a.Kind)}}
	}

	var errs []model.FieldError
	if a.Amount < 1 {
		errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf("%s amount must be >= 1, got %d", a.Kind, a.Amount)})
	}
	total, ok := totals[a.Resource]
	if !ok {
		errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf("unknown resource R%d", a.Resource)})
		return errs
	}
	if a.Kind == model.ActionRequest && a.Amount > total {
		errs = append(errs, model.FieldError{
			Field:   field,
			Message: fmt.Sprintf("request for %d of R%d exceeds its %d instances", a.Amount, a.Resource, total),
		})
	}
	return errs
}
