package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abacushq/abacus/internal/types"
)

// teamQuery resolves a team by key along with its active cycle and the
// completion history of recent past cycles.
const teamQuery = `
query TeamSnapshot($teamKey: String!) {
  teams(filter: { key: { eq: $teamKey } }, first: 1) {
    nodes {
      id
      key
      activeCycle {
        number
        startsAt
        endsAt
        progress
        completedScopeHistory
      }
      cycles(filter: { isPast: { eq: true } }, first: 12) {
        nodes {
          number
          startsAt
          endsAt
          completedScopeHistory
        }
      }
    }
  }
}`

// issuesQuery pages through a team's unstarted work
const issuesQuery = `
query BacklogIssues($teamId: ID!, $first: Int!, $after: String) {
  issues(
    first: $first
    after: $after
    filter: {
      team: { id: { eq: $teamId } }
      state: { type: { in: ["triage", "backlog", "unstarted"] } }
    }
  ) {
    nodes {
      identifier
      title
      estimate
      priority
      createdAt
      labels { nodes { name } }
      relations { nodes { type relatedIssue { identifier } } }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

type teamEnvelope struct {
	Teams struct {
		Nodes []teamPayload `json:"nodes"`
	} `json:"teams"`
}

type teamPayload struct {
	ID          string        `json:"id"`
	Key         string        `json:"key"`
	ActiveCycle *cyclePayload `json:"activeCycle"`
	Cycles      struct {
		Nodes []cyclePayload `json:"nodes"`
	} `json:"cycles"`
}

type cyclePayload struct {
	Number                int       `json:"number"`
	StartsAt              time.Time `json:"startsAt"`
	EndsAt                time.Time `json:"endsAt"`
	Progress              float64   `json:"progress"`
	CompletedScopeHistory []float64 `json:"completedScopeHistory"`
}

type issuesEnvelope struct {
	Issues struct {
		Nodes    []issuePayload `json:"nodes"`
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"issues"`
}

type issuePayload struct {
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Estimate   *float64  `json:"estimate"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"createdAt"`
	Labels     struct {
		Nodes []labelPayload `json:"nodes"`
	} `json:"labels"`
	Relations struct {
		Nodes []relationPayload `json:"nodes"`
	} `json:"relations"`
}

type labelPayload struct {
	Name string `json:"name"`
}

type relationPayload struct {
	Type         string `json:"type"`
	RelatedIssue struct {
		Identifier string `json:"identifier"`
	} `json:"relatedIssue"`
}

// FetchSnapshot pulls everything the planner needs for one team and
// assembles it into a snapshot: backlog items, dependency graph, cycle
// health, and velocity samples from past cycles. Derived velocity fields
// (average, trend, confidence) are left for the planner to fill from the
// samples.
func (c *Client) FetchSnapshot(ctx context.Context, teamKey string) (*types.Snapshot, error) {
	team, err := c.fetchTeam(ctx, teamKey)
	if err != nil {
		return nil, err
	}

	issues, err := c.fetchBacklogIssues(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch backlog for %s: %w", teamKey, err)
	}

	return buildSnapshot(team, issues, c.now()), nil
}

// fetchTeam resolves a team key to its ID and cycle data
func (c *Client) fetchTeam(ctx context.Context, teamKey string) (*teamPayload, error) {
	resp, err := c.execute(ctx, &graphQLRequest{
		Query:     teamQuery,
		Variables: map[string]interface{}{"teamKey": teamKey},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch team %s: %w", teamKey, err)
	}

	var env teamEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("parse team response: %w", err)
	}
	if len(env.Teams.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamKey)
	}
	return &env.Teams.Nodes[0], nil
}

// fetchBacklogIssues pages through all unstarted issues for a team
func (c *Client) fetchBacklogIssues(ctx context.Context, teamID string) ([]issuePayload, error) {
	var all []issuePayload
	var cursor string

	for {
		vars := map[string]interface{}{
			"teamId": teamID,
			"first":  pageSize,
		}
		if cursor != "" {
			vars["after"] = cursor
		}

		resp, err := c.execute(ctx, &graphQLRequest{Query: issuesQuery, Variables: vars})
		if err != nil {
			return nil, err
		}

		var env issuesEnvelope
		if err := json.Unmarshal(resp.Data, &env); err != nil {
			return nil, fmt.Errorf("parse issues response: %w", err)
		}

		all = append(all, env.Issues.Nodes...)
		if !env.Issues.PageInfo.HasNextPage {
			break
		}
		cursor = env.Issues.PageInfo.EndCursor
	}

	return all, nil
}
