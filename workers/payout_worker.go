package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"card-tournament-system/models"

	"gorm.io/gorm"
)

// WalletClient posts prize and refund credits to the external wallet
// service. Money only ever moves through this client, never in the
// engine.
type WalletClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewWalletClient(db *gorm.DB) *WalletClient {
	baseURL := os.Getenv("WALLET_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("WALLET_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("TOURNAMENT_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("TOURNAMENT_SERVICE_TOKEN environment variable is required for payouts")
	}

	return &WalletClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreditPlayer sends one credit to the wallet service. The payout id
// doubles as the idempotency key so a retried row cannot pay twice.
func (c *WalletClient) CreditPlayer(ctx context.Context, p models.Payout) error {
	body := map[string]interface{}{
		"idempotency_key": p.ID,
		"user_id":         p.PlayerID,
		"amount":          p.Amount,
		"reason":          fmt.Sprintf("tournament_%s", p.Kind),
		"reference_id":    p.TournamentID,
	}
	jsonData, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/credits", c.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// PollPayouts drains pending payout rows on a fixed interval. A row
// that fails stays pending and is retried on the next tick; only a
// wallet-service rejection (4xx) marks it failed.
func PollPayouts(ctx context.Context, client *WalletClient, pollInterval time.Duration) {
	log.Println("Starting payout polling (DB-backed)...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payout polling stopped.")
			return
		case <-ticker.C:
			var pending []models.Payout
			err := client.DB.
				Where("status = ?", models.PayoutStatusPending).
				Order("created_at ASC").
				Limit(100).
				Find(&pending).Error
			if err != nil {
				log.Printf("❌ Error fetching pending payouts: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			log.Printf("📤 Sending %d pending payout(s)...", len(pending))
			sent := 0
			for _, p := range pending {
				if err := client.CreditPlayer(ctx, p); err != nil {
					log.Printf("❌ Payout %s (player %s, %d) failed: %v", p.ID, p.PlayerID, p.Amount, err)
					// Leave pending for retry; the idempotency key makes
					// a duplicate send harmless.
					continue
				}
				now := time.Now().UTC()
				if err := client.DB.Model(&models.Payout{}).
					Where("id = ?", p.ID).
					Updates(map[string]interface{}{
						"status":  models.PayoutStatusSent,
						"sent_at": &now,
					}).Error; err != nil {
					log.Printf("❌ Failed to mark payout %s sent: %v", p.ID, err)
					continue
				}
				sent++
			}
			if sent > 0 {
				log.Printf("✅ Sent %d payout(s).", sent)
			}
		}
	}
}
