package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, pipeline turns can run long
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	userToken := os.Getenv("TEST_USER_TOKEN")
	if userToken == "" {
		color.Red("TEST_USER_TOKEN is not set")
		os.Exit(1)
	}

	color.Cyan("🚀 Starting Chat API Test\n")

	// 1. Create a chat session scoped to the code and PR indexes
	color.Yellow("\n[USER] 1. Create Chat Session")
	sessReq := map[string]interface{}{
		"title":      "API smoke test",
		"index_list": []string{"code-main", "pull-requests"},
	}
	resp, body, err := sendRequest("POST", "/chat/v1/session", userToken, sessReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createSessResp map[string]interface{}
	json.Unmarshal(body, &createSessResp)
	prettyPrint(createSessResp)

	var sessionID string
	if data, ok := createSessResp["data"].(map[string]interface{}); ok {
		if id, ok := data["chat_session_id"].(string); ok {
			sessionID = id
			fmt.Printf("Created Session ID: %s\n", sessionID)
		}
	}
	if sessionID == "" {
		color.Red("Aborting: failed to create session")
		os.Exit(1)
	}

	// 2. Send a chat turn
	color.Yellow("\n[USER] 2. Send Chat: 'explain the login flow'")
	chatReq := map[string]interface{}{
		"chat_session_id": sessionID,
		"chat":            "Explain how the login flow works in this codebase.",
	}
	resp, body, err = sendRequest("POST", "/chat/v1", userToken, chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var chatResp map[string]interface{}
	json.Unmarshal(body, &chatResp)
	prettyPrint(chatResp)

	// 3. If the turn suspended on PR selection, resume with the first candidate
	if resp.StatusCode == http.StatusAccepted {
		color.Yellow("\n[USER] 3. Turn suspended, resuming with first PR candidate")
		var prNumber float64
		if data, ok := chatResp["data"].(map[string]interface{}); ok {
			if cands, ok := data["candidates"].([]interface{}); ok && len(cands) > 0 {
				if c, ok := cands[0].(map[string]interface{}); ok {
					prNumber, _ = c["pr_number"].(float64)
				}
			}
		}
		resumeReq := map[string]interface{}{
			"chat_session_id": sessionID,
			"user_selected_pull_requests": []map[string]interface{}{
				{"pr_number": int(prNumber), "selected": true},
			},
		}
		resp, body, err = sendRequest("POST", "/chat/v1/resume", userToken, resumeReq)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		json.Unmarshal(body, &chatResp)
		prettyPrint(chatResp)
	}

	// 4. Fetch persisted history
	color.Yellow("\n[USER] 4. Get Chat History")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID+"/history", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyResp map[string]interface{}
	json.Unmarshal(body, &historyResp)
	prettyPrint(historyResp)

	// 5. Clean up
	color.Yellow("\n[USER] 5. Delete Session")
	resp, _, err = sendRequest("DELETE", "/chat/v1/session/"+sessionID, userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	color.Cyan("\n✅ Chat API test complete")
}
