// Copyright 2025 Open Resource Broker Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handlers

import (
	"context"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/template"
)

// ValidateTemplate runs the full validation rule set against a template
// body without persisting it, for administrative pre-flight checks.
func (h *Handlers) ValidateTemplate(_ context.Context, cmd bus.ValidateTemplate) (bus.ValidateTemplateResult, error) {
	result := h.templates.Validate(cmd.Template)
	return bus.ValidateTemplateResult{
		IsValid:           result.IsValid,
		Errors:            result.Errors,
		Warnings:          result.Warnings,
		SupportedFeatures: result.SupportedFeatures,
	}, nil
}

// CreateTemplate adds a new template to the administrative backend. It
// is rejected if validation fails or a template with the same id already
// exists. The template Manager used for the read path loads template
// files from its configured directory, not this repository, so it does
// not see templates created here.
func (h *Handlers) CreateTemplate(ctx context.Context, cmd bus.CreateTemplate) (bool, error) {
	if h.templateRepo == nil {
		return false, brokerror.New(brokerror.Internal, "no template repository configured")
	}

	result := template.Validate(cmd.Template, h.now())
	if !result.IsValid {
		return false, brokerror.New(brokerror.Validation, "template failed validation").WithField("errors", joinStrings(result.Errors))
	}

	exists, err := h.templateRepo.Exists(ctx, cmd.Template.TemplateID)
	if err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "checking template existence", err)
	}
	if exists {
		return false, brokerror.New(brokerror.Conflict, "template already exists").WithField("template_id", cmd.Template.TemplateID)
	}

	if err := h.templateRepo.Save(ctx, cmd.Template); err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "saving template", err)
	}
	return true, nil
}

// UpdateTemplate replaces an existing template definition in place.
func (h *Handlers) UpdateTemplate(ctx context.Context, cmd bus.UpdateTemplate) (bool, error) {
	if h.templateRepo == nil {
		return false, brokerror.New(brokerror.Internal, "no template repository configured")
	}

	result := template.Validate(cmd.Template, h.now())
	if !result.IsValid {
		return false, brokerror.New(brokerror.Validation, "template failed validation").WithField("errors", joinStrings(result.Errors))
	}

	exists, err := h.templateRepo.Exists(ctx, cmd.Template.TemplateID)
	if err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "checking template existence", err)
	}
	if !exists {
		return false, brokerror.New(brokerror.NotFound, "template not found").WithField("template_id", cmd.Template.TemplateID)
	}

	if err := h.templateRepo.Save(ctx, cmd.Template); err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "saving template", err)
	}
	return true, nil
}

// DeleteTemplate removes a template definition by id.
func (h *Handlers) DeleteTemplate(ctx context.Context, cmd bus.DeleteTemplate) (bool, error) {
	if h.templateRepo == nil {
		return false, brokerror.New(brokerror.Internal, "no template repository configured")
	}
	deleted, err := h.templateRepo.Delete(ctx, cmd.TemplateID)
	if err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "deleting template", err)
	}
	return deleted, nil
}

// ListTemplates lists every currently loaded template, optionally
// filtered by provider API, from the file-backed Manager that is the
// scheduler's read path.
func (h *Handlers) ListTemplates(ctx context.Context, q bus.ListTemplates) ([]domain.Template, error) {
	all, err := h.templates.List(ctx)
	if err != nil {
		return nil, brokerror.Wrap(brokerror.Internal, "listing templates", err)
	}
	if q.ProviderAPI == "" {
		return all, nil
	}
	filtered := make([]domain.Template, 0, len(all))
	for _, tpl := range all {
		if tpl.ProviderAPI == q.ProviderAPI {
			filtered = append(filtered, tpl)
		}
	}
	return filtered, nil
}

// GetTemplate fetches a single template, checking the file-backed Manager
// first and falling back to the administrative repository so a template
// created through CreateTemplate is visible before the next reload.
func (h *Handlers) GetTemplate(ctx context.Context, q bus.GetTemplate) (domain.Template, error) {
	tpl, ok, err := h.templates.Get(ctx, q.TemplateID)
	if err != nil {
		return domain.Template{}, brokerror.Wrap(brokerror.Internal, "loading template", err)
	}
	if ok {
		return tpl, nil
	}

	if h.templateRepo != nil {
		tpl, ok, err = h.templateRepo.GetByID(ctx, q.TemplateID)
		if err != nil {
			return domain.Template{}, brokerror.Wrap(brokerror.Internal, "loading template", err)
		}
		if ok {
			return tpl, nil
		}
	}

	return domain.Template{}, brokerror.New(brokerror.NotFound, "template not found").WithField("template_id", q.TemplateID)
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}
