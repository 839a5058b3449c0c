// Package pms talks to the practice-management-system message API, which is
// the authority for patient identities. Its one job here is asking the PMS to
// merge duplicate patient registrations left behind by suffixed imports.
package pms

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MergeGroup is one duplicate cluster: the unsuffixed target identifier and
// the suffixed source identifiers to fold into it.
type MergeGroup struct {
	Target  string   `json:"target"`
	Sources []string `json:"sources"`
}

// GroupDuplicates clusters patient identifiers by their base id, the part
// before the first dash. Identifiers equal to their base are targets; the
// dash-suffixed ones are merge sources. Clusters without both a target and at
// least one source are dropped.
func GroupDuplicates(ids []string) []MergeGroup {
	type cluster struct {
		target  string
		sources []string
	}
	clusters := make(map[string]*cluster)
	var order []string

	for _, id := range ids {
		if id == "" {
			continue
		}
		base := id
		if i := strings.Index(id, "-"); i > 0 {
			base = id[:i]
		}
		cl, ok := clusters[base]
		if !ok {
			cl = &cluster{}
			clusters[base] = cl
			order = append(order, base)
		}
		if id == base {
			cl.target = id
		} else {
			cl.sources = append(cl.sources, id)
		}
	}

	var groups []MergeGroup
	for _, base := range order {
		cl := clusters[base]
		if cl.target == "" || len(cl.sources) == 0 {
			continue
		}
		sort.Strings(cl.sources)
		groups = append(groups, MergeGroup{Target: cl.target, Sources: cl.sources})
	}
	return groups
}

// MergeReport summarizes one merge run.
type MergeReport struct {
	Merged int `json:"merged"`
	Failed int `json:"failed"`
}

type messageHeader struct {
	Version string `json:"version"`
}

type mergeMessage struct {
	Contract        string         `json:"contract"`
	Operation       string         `json:"operation"`
	Context         map[string]any `json:"context"`
	SourcePatientID string         `json:"sourcePatientId"`
	TargetPatientID string         `json:"targetPatientId"`
}

type mergeRequest struct {
	Header  messageHeader `json:"header"`
	Message mergeMessage  `json:"message"`
}

// Client posts merge requests to the PMS message endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a client for the PMS API at baseURL. The PMS ships with a
// self-signed certificate, so verification is disabled for its local
// endpoint.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		log: logger,
	}
}

// Merge asks the PMS to fold the source patient into the target patient.
func (c *Client) Merge(ctx context.Context, sourceID, targetID string) error {
	payload := mergeRequest{
		Header: messageHeader{Version: "1.0"},
		Message: mergeMessage{
			Contract:        "patient",
			Operation:       "merge.request",
			Context:         map[string]any{},
			SourcePatientID: sourceID,
			TargetPatientID: targetID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal merge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send merge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("merge %s into %s: status %d", sourceID, targetID, resp.StatusCode)
	}
	return nil
}

// MergeAll runs every group, folding each source into its target. A failing
// pair is logged and counted; it never stops the run.
func (c *Client) MergeAll(ctx context.Context, groups []MergeGroup) (MergeReport, error) {
	var report MergeReport
	for _, group := range groups {
		for _, source := range group.Sources {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := c.Merge(ctx, source, group.Target); err != nil {
				report.Failed++
				c.log.Error().
					Err(err).
					Str("source", source).
					Str("target", group.Target).
					Msg("merge failed")
				continue
			}
			report.Merged++
			c.log.Info().
				Str("source", source).
				Str("target", group.Target).
				Msg("merged duplicate patient")
		}
	}
	return report, nil
}
