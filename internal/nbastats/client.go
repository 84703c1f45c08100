// Package nbastats is the NBA stats API client: a retrying fetcher plus typed
// endpoint wrappers that parse the row-oriented resultSets response format
// into flat records.
package nbastats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the public NBA stats API root.
	DefaultBaseURL = "https://stats.nba.com/stats"

	leagueNBA         = "00"
	seasonTypeRegular = "Regular Season"
)

// Row is one flat record: column name to scalar value (float64, string,
// bool, or nil, the types JSON decoding produces).
type Row = map[string]interface{}

// Client wraps the stats API endpoints used by the pipeline.
type Client struct {
	fetcher *RetryingFetcher
}

// NewClient creates a client with the given fetcher.
func NewClient(fetcher *RetryingFetcher) *Client {
	return &Client{fetcher: fetcher}
}

// NewDefaultClient creates a client against the public API with default
// timeout and retry settings.
func NewDefaultClient() *Client {
	return NewClient(NewRetryingFetcher(nil, DefaultBaseURL, 3, time.Second))
}

// resultEnvelope is the provider's row-oriented response wrapper.
type resultEnvelope struct {
	ResultSets []struct {
		Name    string          `json:"name"`
		Headers []string        `json:"headers"`
		RowSet  [][]interface{} `json:"rowSet"`
	} `json:"resultSets"`
}

// PlayersList fetches the complete player roster for a season from the
// commonallplayers endpoint.
func (c *Client) PlayersList(ctx context.Context, season string) ([]Row, error) {
	params := url.Values{}
	params.Set("Season", season)
	params.Set("LeagueID", leagueNBA)

	rows, err := c.fetchRows(ctx, "commonallplayers", params, 9)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{
			"player_id":   r[0],
			"player_name": r[2],
			"team_id":     r[7],
			"team_name":   r[8],
			"season":      season,
			"is_active":   r[1],
		})
	}
	return out, nil
}

// AdvancedStats fetches per-game advanced statistics for all players from the
// leaguedashplayerstats endpoint.
func (c *Client) AdvancedStats(ctx context.Context, season string) ([]Row, error) {
	params := url.Values{}
	params.Set("Season", season)
	params.Set("SeasonType", seasonTypeRegular)
	params.Set("LeagueID", leagueNBA)
	params.Set("PerMode", "PerGame")
	params.Set("MeasureType", "Advanced")

	rows, err := c.fetchRows(ctx, "leaguedashplayerstats", params, 25)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{
			"player_id":   r[0],
			"player_name": r[1],
			"team_id":     r[2],
			"team_name":   r[3],
			"age":         r[4],
			"gp":          r[5],
			"w":           r[6],
			"l":           r[7],
			"w_pct":       r[8],
			"min":         r[9],
			"off_rating":  r[10],
			"def_rating":  r[11],
			"net_rating":  r[12],
			"ast_pct":     r[13],
			"ast_to":      r[14],
			"ast_ratio":   r[15],
			"oreb_pct":    r[16],
			"dreb_pct":    r[17],
			"reb_pct":     r[18],
			"tov_pct":     r[19],
			"efg_pct":     r[20],
			"ts_pct":      r[21],
			"usg_pct":     r[22],
			"pace":        r[23],
			"pie":         r[24],
			"season":      season,
			"season_type": seasonTypeRegular,
		})
	}
	return out, nil
}

// PlayerGameLogs fetches game-by-game statistics for one player across a
// season from the playergamelog endpoint.
func (c *Client) PlayerGameLogs(ctx context.Context, playerID int64, season string) ([]Row, error) {
	params := url.Values{}
	params.Set("PlayerID", fmt.Sprintf("%d", playerID))
	params.Set("Season", season)
	params.Set("SeasonType", seasonTypeRegular)
	params.Set("LeagueID", leagueNBA)

	rows, err := c.fetchRows(ctx, "playergamelog", params, 25)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{
			"player_id":  playerID,
			"game_date":  r[2],
			"matchup":    r[3],
			"wl":         r[4],
			"minutes":    r[5],
			"fgm":        r[6],
			"fga":        r[7],
			"fg_pct":     r[8],
			"fg3m":       r[9],
			"fg3a":       r[10],
			"fg3_pct":    r[11],
			"ftm":        r[12],
			"fta":        r[13],
			"ft_pct":     r[14],
			"oreb":       r[15],
			"dreb":       r[16],
			"reb":        r[17],
			"ast":        r[18],
			"stl":        r[19],
			"blk":        r[20],
			"tov":        r[21],
			"pf":         r[22],
			"pts":        r[23],
			"plus_minus": r[24],
			"season":     season,
		})
	}
	return out, nil
}

// fetchRows fetches an endpoint and returns the first result set's rows,
// verifying every row carries at least minCols columns. A response that does
// not match the expected shape is a contract violation, not a retryable
// condition.
func (c *Client) fetchRows(ctx context.Context, endpoint string, params url.Values, minCols int) ([][]interface{}, error) {
	body, err := c.fetcher.Fetch(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", endpoint, err)
	}
	if len(envelope.ResultSets) == 0 {
		return nil, fmt.Errorf("parsing %s response: no result sets", endpoint)
	}

	rows := envelope.ResultSets[0].RowSet
	for i, r := range rows {
		if len(r) < minCols {
			return nil, fmt.Errorf("parsing %s response: row %d has %d columns, want >= %d",
				endpoint, i, len(r), minCols)
		}
	}
	return rows, nil
}
