package footballdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/footyverse/prediction-league/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.football-data.org/v4"
	defaultCompetition = "PL"
	matchIDChunkSize   = 20
)

// Client implements usecase.MatchProvider against the football-data.org
// v4 API through the shared queueing Gateway.
type Client struct {
	gateway     *Gateway
	competition string
}

type ClientConfig struct {
	Gateway     *Gateway
	Competition string
}

func NewClient(cfg ClientConfig) *Client {
	competition := strings.ToUpper(strings.TrimSpace(cfg.Competition))
	if competition == "" {
		competition = defaultCompetition
	}
	return &Client{gateway: cfg.Gateway, competition: competition}
}

type matchEnvelope struct {
	Matches []providerMatch `json:"matches"`
}

type providerMatch struct {
	ID       int64  `json:"id"`
	UTCDate  string `json:"utcDate"`
	Status   string `json:"status"`
	Matchday int    `json:"matchday"`
	Season   struct {
		StartDate string `json:"startDate"`
	} `json:"season"`
	HomeTeam providerMatchTeam `json:"homeTeam"`
	AwayTeam providerMatchTeam `json:"awayTeam"`
	Score    struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}

type providerMatchTeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type teamEnvelope struct {
	Teams []providerTeam `json:"teams"`
}

type providerTeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Tla       string `json:"tla"`
	Crest     string `json:"crest"`
}

func (c *Client) MatchesByIDs(ctx context.Context, ids []int64) ([]usecase.ExternalMatch, error) {
	cleaned := dedupePositiveIDs(ids)
	if len(cleaned) == 0 {
		return nil, nil
	}

	matches := make([]usecase.ExternalMatch, 0, len(cleaned))
	for start := 0; start < len(cleaned); start += matchIDChunkSize {
		end := start + matchIDChunkSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		chunk := cleaned[start:end]

		query := url.Values{}
		query.Set("ids", joinIDs(chunk))

		var envelope matchEnvelope
		if err := c.getJSON(ctx, PriorityLive, "/matches", query, &envelope); err != nil {
			return nil, fmt.Errorf("fetch matches by ids: %w", err)
		}
		for _, m := range envelope.Matches {
			match, err := mapProviderMatch(m)
			if err != nil {
				return nil, err
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (c *Client) SeasonMatches(ctx context.Context, season string) ([]usecase.ExternalMatch, error) {
	seasonYear, err := seasonStartYear(season)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("season", strconv.Itoa(seasonYear))

	var envelope matchEnvelope
	path := "/competitions/" + c.competition + "/matches"
	if err := c.getJSON(ctx, PriorityBulk, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch season matches season=%s: %w", season, err)
	}

	matches := make([]usecase.ExternalMatch, 0, len(envelope.Matches))
	for _, m := range envelope.Matches {
		match, err := mapProviderMatch(m)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (c *Client) CompetitionTeams(ctx context.Context, season string) ([]usecase.ExternalTeam, error) {
	query := url.Values{}
	if strings.TrimSpace(season) != "" {
		seasonYear, err := seasonStartYear(season)
		if err != nil {
			return nil, err
		}
		query.Set("season", strconv.Itoa(seasonYear))
	}

	var envelope teamEnvelope
	path := "/competitions/" + c.competition + "/teams"
	if err := c.getJSON(ctx, PriorityBulk, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch competition teams: %w", err)
	}

	teams := make([]usecase.ExternalTeam, 0, len(envelope.Teams))
	for _, t := range envelope.Teams {
		if t.ID <= 0 {
			continue
		}
		teams = append(teams, usecase.ExternalTeam{
			ID:        t.ID,
			Name:      t.Name,
			ShortName: t.ShortName,
			Tla:       t.Tla,
			CrestURL:  t.Crest,
		})
	}
	return teams, nil
}

func (c *Client) getJSON(ctx context.Context, priority int, path string, query url.Values, target any) error {
	body, err := c.gateway.Get(ctx, priority, path, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func mapProviderMatch(m providerMatch) (usecase.ExternalMatch, error) {
	if m.ID <= 0 {
		return usecase.ExternalMatch{}, fmt.Errorf("%w: provider match without id", usecase.ErrMissingExternalRef)
	}
	kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
	if err != nil {
		return usecase.ExternalMatch{}, fmt.Errorf("parse match %d kickoff %q: %w", m.ID, m.UTCDate, err)
	}
	return usecase.ExternalMatch{
		ID:         m.ID,
		Season:     seasonLabel(m.Season.StartDate),
		Matchday:   m.Matchday,
		UTCDate:    kickoff.UTC(),
		Status:     m.Status,
		HomeTeamID: m.HomeTeam.ID,
		HomeTeam:   pickTeamName(m.HomeTeam),
		AwayTeamID: m.AwayTeam.ID,
		AwayTeam:   pickTeamName(m.AwayTeam),
		HomeScore:  m.Score.FullTime.Home,
		AwayScore:  m.Score.FullTime.Away,
	}, nil
}

func pickTeamName(team providerMatchTeam) string {
	if team.Name != "" {
		return team.Name
	}
	return team.ShortName
}

// seasonLabel turns a provider season start date into the engine's
// "2025/2026" label. An empty or unparseable date yields "".
func seasonLabel(startDate string) string {
	if len(startDate) < 4 {
		return ""
	}
	year, err := strconv.Atoi(startDate[:4])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", year, year+1)
}

// seasonStartYear accepts "2025/2026", "2025-2026", or "2025".
func seasonStartYear(season string) (int, error) {
	trimmed := strings.TrimSpace(season)
	for _, sep := range []string{"/", "-"} {
		if idx := strings.Index(trimmed, sep); idx > 0 {
			trimmed = trimmed[:idx]
			break
		}
	}
	year, err := strconv.Atoi(trimmed)
	if err != nil || year < 1900 || year > 2200 {
		return 0, fmt.Errorf("%w: season %q is not a valid season label", usecase.ErrInvalidInput, season)
	}
	return year, nil
}

func dedupePositiveIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	cleaned := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	sort.Slice(cleaned, func(i, j int) bool { return cleaned[i] < cleaned[j] })
	return cleaned
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
