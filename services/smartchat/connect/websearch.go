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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// SearchArea scopes a local-business search.
type SearchArea struct {
	Region string
	Lat    float64
	Lng    float64
	// Zoom is the map zoom level the search radius derives from.
	Zoom int
	// Limit caps the number of returned businesses.
	Limit int
}

// DefaultSearchArea matches the product default: a Brisbane-centered
// search returning five candidates.
func DefaultSearchArea() SearchArea {
	return SearchArea{
		Region: "au",
		Lat:    -27.4698,
		Lng:    153.0251,
		Zoom:   10,
		Limit:  5,
	}
}

// WebSearch queries the local-business-data API on RapidAPI. Used as
// the fallback when the partner graph has no matches for the user.
type WebSearch struct {
	baseURL string
	host    string
	apiKey  string
	httpc   *http.Client
}

// NewWebSearch returns a client for the given RapidAPI host. An empty
// host disables the fallback; searches return no results.
func NewWebSearch(host, apiKey string) *WebSearch {
	w := &WebSearch{
		host:   host,
		apiKey: apiKey,
		httpc:  &http.Client{Timeout: 30 * time.Second},
	}
	if host != "" {
		w.baseURL = "https://" + host
	}
	return w
}

type webBusiness struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Rating      float64 `json:"rating"`
	FullAddress string  `json:"full_address"`
	PhoneNumber string  `json:"phone_number"`
	Website     string  `json:"website"`

	EmailsAndContacts struct {
		Emails []string `json:"emails"`
	} `json:"emails_and_contacts"`
}

type webSearchResponse struct {
	Data []webBusiness `json:"data"`
}

// Search runs a text query against the search-in-area endpoint and maps
// the hits into the shared business shape.
func (w *WebSearch) Search(ctx context.Context, query string, area SearchArea) ([]datatypes.Business, error) {
	if w.baseURL == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("lat", strconv.FormatFloat(area.Lat, 'f', 6, 64))
	params.Set("lng", strconv.FormatFloat(area.Lng, 'f', 6, 64))
	params.Set("limit", strconv.Itoa(area.Limit))
	params.Set("language", "en")
	params.Set("region", area.Region)
	params.Set("zoom", strconv.Itoa(area.Zoom))
	params.Set("extract_emails_and_contacts", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.baseURL+"/search-in-area?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build business search request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", w.host)
	req.Header.Set("x-rapidapi-key", w.apiKey)

	resp, err := w.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("business search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("business search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode business search response: %w", err)
	}

	businesses := make([]datatypes.Business, 0, len(parsed.Data))
	for _, hit := range parsed.Data {
		b := datatypes.Business{
			Name:         hit.Name,
			BusinessType: hit.Type,
			Rating:       hit.Rating,
			Address:      hit.FullAddress,
			PhoneNumber:  hit.PhoneNumber,
			Website:      hit.Website,
		}
		if len(hit.EmailsAndContacts.Emails) > 0 {
			b.Email = hit.EmailsAndContacts.Emails[0]
		}
		businesses = append(businesses, b)
	}
	return businesses, nil
}
