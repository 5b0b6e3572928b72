// Package congress holds the member domain: a congress.gov roster
// client and the Representative/Senator types that turn raw portal
// search rows into categorized, cached disclosure sets.
package congress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"capitolwatch-backend/lib/restyutil"

	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("congress")

const (
	apiBaseURL = "https://api.congress.gov/v3"

	// FallbackCongress is used when the current-congress lookup fails.
	FallbackCongress = 118

	// pageLimit is the maximum the API allows per request.
	pageLimit = 250
)

// Member is one congress.gov roster entry.
type Member struct {
	BioguideID string
	Name       string
	Party      string
	State      string
	District   int
	Chamber    string
	URL        string
}

type Client struct {
	http *resty.Client
}

func NewClient(apiKey string) *Client {
	client := resty.New()
	client.SetBaseURL(apiBaseURL)
	client.SetHeader("x-api-key", apiKey)
	client.SetHeader("accept", "application/json")
	client.SetQueryParam("format", "json")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, otel.Tracer("congress/http"), nil)

	return &Client{http: client}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(url)
}

type currentCongressResponse struct {
	Congress struct {
		Number int `json:"number"`
	} `json:"congress"`
}

// GetCurrentCongress returns the sitting congress number, falling back
// to a hardcoded value when the lookup fails.
func (c *Client) GetCurrentCongress(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "GetCurrentCongress")
	defer span.End()

	var body currentCongressResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/congress")
	if err != nil || res.StatusCode() != 200 || body.Congress.Number == 0 {
		slog.WarnContext(
			ctx, "failed to look up current congress, using fallback",
			"fallback", FallbackCongress, "err", err,
		)
		return FallbackCongress
	}
	return body.Congress.Number
}

type memberEntry struct {
	BioguideID string `json:"bioguideId"`
	Name       string `json:"name"`
	PartyName  string `json:"partyName"`
	State      string `json:"state"`
	District   int    `json:"district"`
	URL        string `json:"url"`
	Terms      struct {
		Item []struct {
			Chamber   string `json:"chamber"`
			StartYear int    `json:"startYear"`
		} `json:"item"`
	} `json:"terms"`
}

type membersResponse struct {
	Members    []memberEntry `json:"members"`
	Pagination struct {
		Count int    `json:"count"`
		Next  string `json:"next"`
	} `json:"pagination"`
}

func (e memberEntry) toMember() Member {
	member := Member{
		BioguideID: e.BioguideID,
		Name:       e.Name,
		Party:      e.PartyName,
		State:      e.State,
		District:   e.District,
		URL:        e.URL,
	}
	// chamber comes from the most recent term
	if len(e.Terms.Item) > 0 {
		member.Chamber = e.Terms.Item[len(e.Terms.Item)-1].Chamber
		if member.Chamber == "House of Representatives" {
			member.Chamber = "House"
		}
	}
	return member
}

// GetAllMembers pages through the roster for a congress. A zero
// congress number means the current one.
func (c *Client) GetAllMembers(ctx context.Context, congress int) ([]Member, error) {
	ctx, span := tracer.Start(ctx, "GetAllMembers")
	defer span.End()

	if congress == 0 {
		congress = c.GetCurrentCongress(ctx)
	}

	var members []Member
	offset := 0
	for {
		var body membersResponse
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("offset", fmt.Sprint(offset)).
			SetQueryParam("limit", fmt.Sprint(pageLimit)).
			SetResult(&body).
			Get(fmt.Sprintf("/member/congress/%d", congress))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "roster request failed")
			return nil, fmt.Errorf("failed to fetch members: %w", err)
		}
		if res.StatusCode() != 200 {
			span.SetStatus(codes.Error, "unexpected status")
			return nil, fmt.Errorf("failed to fetch members: HTTP %d", res.StatusCode())
		}

		for _, entry := range body.Members {
			members = append(members, entry.toMember())
		}
		if body.Pagination.Next == "" {
			break
		}
		offset += pageLimit
	}

	slog.InfoContext(ctx, "fetched roster", "congress", congress, "members", len(members))
	return members, nil
}

// FindMember fuzzy-matches a name against the roster and returns the
// closest member with its similarity score.
func FindMember(members []Member, name string) (Member, float64) {
	var best Member
	bestScore := 0.0
	for _, member := range members {
		score := matchr.JaroWinkler(name, member.Name, false)
		if score > bestScore {
			best = member
			bestScore = score
		}
	}
	return best, bestScore
}
