package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GroupMembership is one group membership reported by the membership API.
type GroupMembership struct {
	GroupSlug      string
	MembershipType string
}

type membershipResponse struct {
	Results []struct {
		Group struct {
			Slug string `json:"slug"`
		} `json:"group"`
		MembershipType string `json:"membership_type"`
	} `json:"results"`
}

// MembershipClient talks to the external membership API.
type MembershipClient struct {
	BaseURL string
	Timeout time.Duration
}

func NewMembershipClient(baseURL string) *MembershipClient {
	return &MembershipClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 10 * time.Second,
	}
}

// FetchMemberships returns the memberships of the user identified by token.
func (m *MembershipClient) FetchMemberships(ctx context.Context, token string) ([]GroupMembership, error) {
	if m.BaseURL == "" {
		return nil, fmt.Errorf("membership API URL is not configured")
	}
	if token == "" {
		return nil, fmt.Errorf("missing membership API token")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Get(m.BaseURL + "/users/me/memberships/")
	agent.Set("x-csrf-token", token)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(m.Timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("membership API request failed: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("membership API returned status %d", status)
	}
	return parseMemberships(body)
}

func parseMemberships(body []byte) ([]GroupMembership, error) {
	var resp membershipResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode membership response: %w", err)
	}
	out := make([]GroupMembership, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Group.Slug == "" {
			continue
		}
		out = append(out, GroupMembership{GroupSlug: r.Group.Slug, MembershipType: r.MembershipType})
	}
	return out, nil
}
