// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// EmailTemplate is one drafted introduction email.
type EmailTemplate struct {
	BusinessName  string `json:"business_name"`
	BusinessEmail string `json:"business_email,omitempty"`
	Body          string `json:"body"`
}

const emailSystemPrompt = "You draft short, warm introduction emails between small business owners exploring a referral partnership. Write the email body only: no subject line, no placeholders left unfilled, under 150 words."

// GenerateEmailTemplates drafts one introduction email per recommended
// business, personalized with the sender's profile. A failed draft is
// skipped with a warning rather than sinking the whole batch; an error
// is returned only when every draft failed.
func GenerateEmailTemplates(ctx context.Context, gateway llm.CompletionClient, profile *datatypes.Profile, businesses []datatypes.Business) ([]EmailTemplate, error) {
	templates := make([]EmailTemplate, 0, len(businesses))
	var lastErr error

	for _, biz := range businesses {
		prompt := fmt.Sprintf(
			"Sender: %s, %s at %s (%s).\nRecipient business: %s (%s), rating %.1f, address: %s, website: %s.\nDraft the introduction email proposing a referral partnership.",
			profile.UserJob, profile.UserStrength, profile.BusinessName, profile.BusinessType,
			biz.Name, biz.BusinessType, biz.Rating, biz.Address, biz.Website)

		body, err := gateway.Chat(ctx, emailSystemPrompt,
			[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
			llm.GenerationParams{})
		if err != nil {
			slog.Warn("Email draft failed for business", "business", biz.Name, "error", err)
			lastErr = err
			continue
		}

		templates = append(templates, EmailTemplate{
			BusinessName:  biz.Name,
			BusinessEmail: biz.Email,
			Body:          strings.TrimSpace(body),
		})
	}

	if len(templates) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all email drafts failed: %w", lastErr)
	}
	return templates, nil
}
