// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "unicode/utf8"

// maxProfileField is the downstream column limit for every profile field,
// counted in characters, not bytes.
const maxProfileField = 100

// Profile is the flat record the profiler extracts from a completed vision
// conversation. Every string field is clamped to 100 characters before
// persistence to match the downstream database schema.
type Profile struct {
	UserID           string `json:"user_id"`
	BusinessName     string `json:"Business_Name"`
	BusinessType     string `json:"Business_Type"`
	UserJob          string `json:"UserJob"`
	UserStrength     string `json:"User_Strength"`
	UserSkills       string `json:"User_skills"`
	BusinessStrength string `json:"Business_Strength"`
	BusinessSkills   string `json:"Business_Skills"`
	BusinessCategory string `json:"Business_Category"`
	SkillCategory    string `json:"Skill_Category"`
	StrengthCategory string `json:"Strength_Category"`
}

// Clamp truncates every field to the persistence limit. Extraction prompts
// ask the model to stay under the limit, but the model is not trusted to.
func (p *Profile) Clamp() {
	fields := []*string{
		&p.BusinessName, &p.BusinessType, &p.UserJob, &p.UserStrength,
		&p.UserSkills, &p.BusinessStrength, &p.BusinessSkills,
		&p.BusinessCategory, &p.SkillCategory, &p.StrengthCategory,
	}
	for _, f := range fields {
		if utf8.RuneCountInString(*f) > maxProfileField {
			runes := []rune(*f)
			*f = string(runes[:maxProfileField])
		}
	}
}

// HasEssentials reports whether the profile carries the minimum needed to
// drive recommendations: who the user is and what their business does.
func (p *Profile) HasEssentials() bool {
	return p.BusinessName != "" && p.UserJob != ""
}
