// Package api is the client for the league's match query/command API.
// Every command returns the full authoritative match on success.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"rinkcenter/internal/config"
	"rinkcenter/internal/domain"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.LeagueAPIBaseURL,
		apiKey:  cfg.LeagueAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodGet, fmt.Sprintf("/matches/%s", matchID), nil)
}

func (c *Client) PatchStatus(ctx context.Context, matchID string, status domain.MatchStatus) (*domain.Match, error) {
	body := map[string]string{"matchStatus": string(status)}
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPatch, fmt.Sprintf("/matches/%s/status", matchID), body)
}

func (c *Client) PatchFinishType(ctx context.Context, matchID string, finishType domain.FinishType) (*domain.Match, error) {
	body := map[string]string{"finishType": string(finishType)}
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPatch, fmt.Sprintf("/matches/%s/finish-type", matchID), body)
}

func (c *Client) AddGoal(ctx context.Context, matchID string, side domain.Side, goal domain.GoalEvent) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPost, fmt.Sprintf("/matches/%s/%s/goals", matchID, side), goal)
}

func (c *Client) UpdateGoal(ctx context.Context, matchID string, side domain.Side, goalID string, goal domain.GoalEvent) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPut, fmt.Sprintf("/matches/%s/%s/goals/%s", matchID, side, goalID), goal)
}

func (c *Client) DeleteGoal(ctx context.Context, matchID string, side domain.Side, goalID string) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodDelete, fmt.Sprintf("/matches/%s/%s/goals/%s", matchID, side, goalID), nil)
}

func (c *Client) AddPenalty(ctx context.Context, matchID string, side domain.Side, penalty domain.PenaltyEvent) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPost, fmt.Sprintf("/matches/%s/%s/penalties", matchID, side), penalty)
}

func (c *Client) UpdatePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string, penalty domain.PenaltyEvent) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPut, fmt.Sprintf("/matches/%s/%s/penalties/%s", matchID, side, penaltyID), penalty)
}

func (c *Client) DeletePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodDelete, fmt.Sprintf("/matches/%s/%s/penalties/%s", matchID, side, penaltyID), nil)
}

func (c *Client) PatchSupplementary(ctx context.Context, matchID string, sheet domain.SupplementarySheet) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, fasthttp.MethodPatch, fmt.Sprintf("/matches/%s/supplementary", matchID), sheet)
}

func (c *Client) PenaltyCodes(ctx context.Context) ([]domain.KeyValue, error) {
	codes, err := doRequest[[]domain.KeyValue](ctx, c, fasthttp.MethodGet, "/penalty-codes", nil)
	if err != nil {
		return nil, err
	}
	return *codes, nil
}

func (c *Client) MatchdayOwner(ctx context.Context, matchdayID string) (*domain.MatchdayOwner, error) {
	return doRequest[domain.MatchdayOwner](ctx, c, fasthttp.MethodGet, fmt.Sprintf("/matchdays/%s/owner", matchdayID), nil)
}

func mutating(method string) bool {
	return method != fasthttp.MethodGet
}

func doRequest[T any](ctx context.Context, client *Client, method, path string, body any) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(client.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", client.apiKey)

	if mutating(method) {
		// upstream deduplicates retried commands by this key
		key, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate idempotency key: %w", err)
		}
		req.Header.Set("Idempotency-Key", key)
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
		}
	}

	switch code := resp.StatusCode(); {
	case code == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, method, path)
	case code == fasthttp.StatusConflict:
		return nil, fmt.Errorf("%w: %s %s", domain.ErrStaleMatch, method, path)
	case code >= fasthttp.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", domain.ErrExternalUnavailable, code)
	case code != fasthttp.StatusOK && code != fasthttp.StatusCreated:
		return nil, fmt.Errorf("league api error: status %d on %s %s", code, method, path)
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode league api response: %w", err)
	}
	return &result, nil
}
