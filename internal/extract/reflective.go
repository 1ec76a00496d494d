package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/mvp-joe/tagsgen/internal/pyrt"
	"github.com/mvp-joe/tagsgen/internal/sanitize"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Reflective extracts records from a unit's live members.
type Reflective struct {
	runtime   pyrt.Runtime
	sanitizer *sanitize.Sanitizer
	policy    *Policy
	logger    *slog.Logger
}

// NewReflective creates a reflective extractor over runtime.
func NewReflective(runtime pyrt.Runtime, sanitizer *sanitize.Sanitizer, policy *Policy, logger *slog.Logger) *Reflective {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reflective{
		runtime:   runtime,
		sanitizer: sanitizer,
		policy:    policy,
		logger:    logger,
	}
}

func (r *Reflective) Name() string { return "reflective" }

// Extract loads unit in the runtime and records its owned public members.
func (r *Reflective) Extract(ctx context.Context, unit Unit) (*Result, error) {
	if r.policy.IsEntryPoint(unit) {
		return nil, fmt.Errorf("%s: %w", unit, ErrEntryPoint)
	}
	if rule, excluded := r.policy.Excluded(unit); excluded {
		return nil, fmt.Errorf("%s: %w (%s)", unit, ErrIgnored, rule)
	}

	report, err := r.runtime.Inspect(ctx, pyrt.Target{Module: unit.Name, Path: unit.Path})
	if err != nil {
		if errors.Is(err, pyrt.ErrUnitCrashed) || errors.Is(err, pyrt.ErrMalformedReport) {
			return &Result{Unit: unit}, fmt.Errorf("%s: %w: %v", unit, ErrLoad, err)
		}
		return nil, err
	}

	result := &Result{Unit: unit}
	if result.Unit.Path == "" {
		result.Unit.Path = report.Origin
	}
	if report.Stderr != "" {
		r.logger.Debug("unit wrote to stderr while loading", "unit", unit.Name, "output", strings.TrimSpace(report.Stderr))
	}

	switch report.Status {
	case pyrt.StatusOK:
	case pyrt.StatusDeprecated:
		return nil, fmt.Errorf("%s: %w: %s", unit, ErrDeprecated, report.Error)
	default:
		return result, fmt.Errorf("%s: %w: %s: %s", unit, ErrLoad, report.ErrorType, report.Error)
	}

	module := report.Module
	for i := range report.Members {
		r.addModuleMember(result, module, &report.Members[i])
	}

	if len(result.Records) == 0 {
		return result, fmt.Errorf("%s: %w", unit, ErrNoMembers)
	}
	return result, nil
}

func (r *Reflective) addModuleMember(result *Result, module string, m *pyrt.Member) {
	if m.Error != "" {
		result.skip(m.Name, m.Error)
		return
	}
	if !r.policy.NameAllowed(m.Name) {
		return
	}

	switch m.Kind {
	case pyrt.MemberModule:
		return

	case pyrt.MemberFunction:
		if m.Module != module {
			result.skip(m.Name, "defined in "+m.Module)
			return
		}
		result.add(tags.Record{
			Name:      m.Name,
			Kind:      tags.KindFunction,
			Signature: r.signature(m, false),
			TypeRef:   returnType(m),
			Origin:    tags.OriginReflective,
		})

	case pyrt.MemberClass:
		if m.Module != module {
			result.skip(m.Name, "defined in "+m.Module)
			return
		}
		r.addClass(result, m, "")

	case pyrt.MemberVariable:
		if !r.policy.RecordVariables() {
			return
		}
		kind := tags.KindVariable
		if isConstantName(m.Name) {
			kind = tags.KindConstant
		}
		result.add(tags.Record{Name: m.Name, Kind: kind, Origin: tags.OriginReflective})
	}
}

// addClass records cls and recurses into its members. scope is the dotted
// path of enclosing classes, empty at module level.
func (r *Reflective) addClass(result *Result, cls *pyrt.Member, scope string) {
	if r.policy.TypeIgnored(cls.Module, cls.Qualname) {
		result.skip(cls.Name, "ignored type "+cls.Module+"."+cls.Qualname)
		return
	}

	result.add(tags.Record{
		Name:      cls.Name,
		Kind:      tags.KindClass,
		Signature: r.signature(cls, false),
		Scope:     scope,
		Origin:    tags.OriginReflective,
	})

	inner := cls.Name
	if scope != "" {
		inner = scope + "." + cls.Name
	}

	for i := range cls.Members {
		m := &cls.Members[i]
		if m.Error != "" {
			result.skip(inner+"."+m.Name, m.Error)
			continue
		}
		if !r.policy.NameAllowed(m.Name) {
			continue
		}

		switch m.Kind {
		case pyrt.MemberFunction:
			bound := m.Binding == pyrt.BindingInstance || m.Binding == pyrt.BindingClass
			result.add(tags.Record{
				Name:      m.Name,
				Kind:      tags.KindMember,
				Signature: r.signature(m, bound),
				Scope:     inner,
				TypeRef:   returnType(m),
				Origin:    tags.OriginReflective,
			})
		case pyrt.MemberProperty:
			result.add(tags.Record{Name: m.Name, Kind: tags.KindMember, Scope: inner, Origin: tags.OriginReflective})
		case pyrt.MemberClass:
			r.addClass(result, m, inner)
		case pyrt.MemberVariable:
			if r.policy.RecordVariables() {
				result.add(tags.Record{Name: m.Name, Kind: tags.KindMember, Scope: inner, Origin: tags.OriginReflective})
			}
		}
	}
}

func (r *Reflective) signature(m *pyrt.Member, dropBound bool) *string {
	if !m.HasSignature() {
		if m.SignatureError != "" {
			r.logger.Debug("no signature", "name", m.Name, "reason", m.SignatureError)
		}
		return nil
	}
	sig, ok := r.sanitizer.Signature(m.Params, sanitize.Options{DropBound: dropBound})
	if !ok {
		return nil
	}
	return tags.Sig(sig)
}

func returnType(m *pyrt.Member) *tags.TypeRef {
	if m.Returns == "" {
		return nil
	}
	return &tags.TypeRef{Kind: tags.TypeRefTypename, Name: sanitize.ASCII(m.Returns)}
}

// isConstantName reports whether name is written in upper case, e.g. MAX_SIZE.
func isConstantName(name string) bool {
	hasUpper := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r), r == '_':
		default:
			return false
		}
	}
	return hasUpper
}
