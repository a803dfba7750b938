package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

type SlackNotifier struct {
	botToken    string
	channel     string
	mentionTeam string
	apiURL      string
	httpClient  *http.Client
}

func NewSlackNotifier(botToken, channel, mentionTeam string) *SlackNotifier {
	return &SlackNotifier{
		botToken:    botToken,
		channel:     channel,
		mentionTeam: mentionTeam,
		apiURL:      "https://slack.com/api/chat.postMessage",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyHighRiskScan sends a formatted alert when a scan produced
// records scored high or critical.
func (s *SlackNotifier) NotifyHighRiskScan(scanID string, iocs []domain.IOC) error {
	blocks := s.buildHighRiskBlocks(scanID, iocs)

	payload := SlackMessage{
		Channel: s.channel,
		Blocks:  blocks,
		Text:    fmt.Sprintf("🚨 High-risk indicators found in scan %s", scanID),
	}

	return s.sendMessage(payload)
}

func (s *SlackNotifier) buildHighRiskBlocks(scanID string, iocs []domain.IOC) []SlackBlock {
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: "🚨 High-Risk Indicators Detected",
			},
		},
		{
			Type: "section",
			Fields: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Scan ID*\n%s", scanID)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Total Records*\n%d", len(iocs))},
			},
		},
		{
			Type: "divider",
		},
	}

	for _, ioc := range iocs {
		if ioc.RiskLevel != "high" && ioc.RiskLevel != "critical" {
			continue
		}

		text := fmt.Sprintf("*%s*: `%s`", ioc.Type, ioc.Value)
		if ioc.OriginalValue != "" {
			text += fmt.Sprintf("\n• Appeared de-fanged as `%s`", ioc.OriginalValue)
		}
		if ioc.RiskScore != nil {
			text += fmt.Sprintf("\n• Risk: %d/100 (%s)", *ioc.RiskScore, ioc.RiskLevel)
		}
		if ioc.RiskExplanation != "" {
			text += fmt.Sprintf("\n• %s", ioc.RiskExplanation)
		}

		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: text,
			},
		})
	}

	blocks = append(blocks,
		SlackBlock{Type: "divider"},
		SlackBlock{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Recommended Actions*\n✓ Block the listed indicators\n✓ Search logs for prior contact\n✓ Review the source report\n\ncc: %s", s.mentionTeam),
			},
		},
	)

	return blocks
}

func (s *SlackNotifier) sendMessage(msg SlackMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequest("POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.botToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}

	return nil
}

// Slack API structures

type SlackMessage struct {
	Channel string       `json:"channel"`
	Blocks  []SlackBlock `json:"blocks"`
	Text    string       `json:"text"` // Fallback text
}

type SlackBlock struct {
	Type     string      `json:"type"`
	Text     *SlackText  `json:"text,omitempty"`
	Fields   []SlackText `json:"fields,omitempty"`
	Elements []SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
