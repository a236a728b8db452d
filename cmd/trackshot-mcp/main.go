package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// trackRequest mirrors the Trackshot API request model.
type trackRequest struct {
	Carrier string `json:"carrier"`
	Codes   string `json:"codes"`
	MaxAge  int    `json:"max_age,omitempty"`
}

// trackResponse mirrors the Trackshot API response model.
type trackResponse struct {
	Success    bool   `json:"success"`
	Carrier    string `json:"carrier"`
	Status     string `json:"status"`
	RawStatus  string `json:"raw_status"`
	Screenshot string `json:"screenshot"`
	Timing     *struct {
		TotalMs   int64 `json:"total_ms"`
		AcquireMs int64 `json:"acquire_ms"`
	} `json:"timing"`
	CacheStatus string `json:"cache_status"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("TRACKSHOT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("TRACKSHOT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "TRACKSHOT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"trackshot",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	trackTool := mcp.NewTool("track_shipment",
		mcp.WithDescription("Look up a shipment's delivery status on the carrier's tracking page and return the normalized status (DELIVERED or UNKNOWN) with a proof screenshot. Supports Vietnamese carriers: Viettel Post, SPX, GHN, GHTK, J&T Express, Ninja Van, BEST Express, VNPost, LEX."),
		mcp.WithString("carrier",
			mcp.Required(),
			mcp.Description("The carrier name as free text, e.g. 'Viettel Post', 'spx', 'GHN'"),
		),
		mcp.WithString("codes",
			mcp.Required(),
			mcp.Description("Comma-separated tracking codes. Aggregator carriers resolve all codes in one lookup."),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result younger than this many milliseconds instead of re-checking the carrier page"),
		),
	)

	s.AddTool(trackTool, handleTrackShipment(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleTrackShipment(apiURL, apiKey string) server.ToolHandlerFunc {
	// Acquisitions can take several minutes: settle waits, CAPTCHA
	// solving, and up to three retries all add up.
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		carrier, err := request.RequireString("carrier")
		if err != nil {
			return mcp.NewToolResultError("carrier is required"), nil
		}
		codes, err := request.RequireString("codes")
		if err != nil {
			return mcp.NewToolResultError("codes is required"), nil
		}

		reqBody := trackRequest{
			Carrier: carrier,
			Codes:   codes,
			MaxAge:  request.GetInt("max_age", 0),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/track", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var trackResp trackResponse
		if err := json.Unmarshal(respBody, &trackResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !trackResp.Success {
			errMsg := "tracking failed"
			if trackResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", trackResp.Error.Code, trackResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		result := fmt.Sprintf("Carrier: %s\nCodes: %s\nStatus: %s\nCarrier status text: %s\n",
			trackResp.Carrier, codes, trackResp.Status, trackResp.RawStatus)
		if trackResp.CacheStatus != "" {
			result += fmt.Sprintf("Cache: %s\n", trackResp.CacheStatus)
		}
		if trackResp.Timing != nil {
			result += fmt.Sprintf("Took: %dms\n", trackResp.Timing.TotalMs)
		}

		// Return the proof screenshot alongside the text summary.
		if trackResp.Screenshot != "" {
			return mcp.NewToolResultText(result + "\nProof screenshot (base64 PNG):\n" + trackResp.Screenshot), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}
