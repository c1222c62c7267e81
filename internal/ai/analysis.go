package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisResult is the structured output expected from the vision model.
type AnalysisResult struct {
	Complexity       string   `json:"complexity"`
	Components       []string `json:"components"`
	OperatingVoltage string   `json:"operating_voltage"`
	Description      string   `json:"description"`
}

const analysisPrompt = `Analyze the provided image of a Printed Circuit Board (PCB). Based on your analysis, provide a detailed and structured JSON output.

Identify the key characteristics of the board and follow these instructions:
- complexity: Classify the board's complexity as 'Low', 'Medium', or 'High' based on component density, number of layers, and trace routing.
- components: List the names of the most prominent and identifiable components on the board.
- operating_voltage: Estimate the primary operating voltage (e.g., "3.3V", "5V", "12V", "3.3V - 5V"). If unsure, state "Not determinable".
- description: Write a concise, one-paragraph technical description of the board's likely function and features.

Return ONLY a JSON object with the fields complexity (string), components (array of strings), operating_voltage (string) and description (string). No additional text.

The user has provided the image. Analyze it now.`

// AnalyzeImage sends the board photo to the vision model and parses the
// structured result.
func AnalyzeImage(ctx context.Context, inv Invoker, imageBytes []byte, contentType string) (*AnalysisResult, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imageBytes))
	out, err := inv.Invoke(ctx, []Message{
		{Role: RoleUser, Content: analysisPrompt, ImageURL: dataURL},
	})
	if err != nil {
		return nil, err
	}

	var res AnalysisResult
	if err := json.Unmarshal([]byte(stripFences(out)), &res); err != nil {
		return nil, fmt.Errorf("%w: output is not valid JSON: %v", ErrInvocation, err)
	}
	return &res, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
