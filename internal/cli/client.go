package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) NewGame(ctx context.Context, playerName, difficulty, homeBase string, seed int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", map[string]any{
		"player_name": playerName,
		"difficulty":  difficulty,
		"home_base":   homeBase,
		"seed":        seed,
	}, &out, idem)
	return out, err
}

func (c *Client) GameState(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d", saveID), nil, &out, "")
	return out, err
}

func (c *Client) AdvanceDay(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/advance", saveID), map[string]any{}, &out, "")
	return out, err
}

func (c *Client) FastForward(ctx context.Context, saveID int64, maxDays int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/fast-forward", saveID), map[string]any{
		"max_days": maxDays,
	}, &out, "")
	return out, err
}

func (c *Client) Fleet(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/fleet", saveID), nil, &out, "")
	return out, err
}

func (c *Client) Offers(ctx context.Context, saveID, aircraftID int64, count int) (map[string]any, error) {
	path := fmt.Sprintf("/v1/games/%d/fleet/%d/offers", saveID, aircraftID)
	if count > 0 {
		path += "?count=" + url.QueryEscape(fmt.Sprint(count))
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) AcceptOffer(ctx context.Context, saveID, aircraftID int64, offer map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/contracts", saveID), map[string]any{
		"aircraft_id": aircraftID,
		"offer":       offer,
	}, &out, idem)
	return out, err
}

func (c *Client) Repair(ctx context.Context, saveID, aircraftID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/fleet/%d/repair", saveID, aircraftID), map[string]any{}, &out, "")
	return out, err
}

func (c *Client) RepairMany(ctx context.Context, saveID int64, aircraftIDs []int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/fleet/repair", saveID), map[string]any{
		"aircraft_ids": aircraftIDs,
	}, &out, "")
	return out, err
}

func (c *Client) UpgradeAircraft(ctx context.Context, saveID, aircraftID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/fleet/%d/upgrade", saveID, aircraftID), map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) PurchaseAircraft(ctx context.Context, saveID int64, modelCode, airportIdent, nickname, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/fleet", saveID), map[string]any{
		"model_code":    modelCode,
		"airport_ident": airportIdent,
		"nickname":      nickname,
	}, &out, idem)
	return out, err
}

func (c *Client) Models(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/models", saveID), nil, &out, "")
	return out, err
}

func (c *Client) Market(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/market", saveID), nil, &out, "")
	return out, err
}

func (c *Client) BuyUsed(ctx context.Context, saveID, marketID int64, airportIdent, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/market/%d/buy", saveID, marketID), map[string]any{
		"airport_ident": airportIdent,
	}, &out, idem)
	return out, err
}

func (c *Client) Bases(ctx context.Context, saveID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/bases", saveID), nil, &out, "")
	return out, err
}

func (c *Client) BuyBase(ctx context.Context, saveID int64, airportIdent, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/bases", saveID), map[string]any{
		"airport_ident": airportIdent,
	}, &out, idem)
	return out, err
}

func (c *Client) UpgradeBase(ctx context.Context, saveID, baseID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/bases/%d/upgrade", saveID, baseID), map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) EventLog(ctx context.Context, saveID int64, limit int) (map[string]any, error) {
	path := fmt.Sprintf("/v1/games/%d/log", saveID)
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprint(limit))
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
