package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	ListCampaigns(tenantID string, offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	ListRunning(tenantID string) ([]*model.Campaign, error)
	GetByID(tenantID string, id int) (*model.Campaign, error)
	Create(c *model.Campaign) error
	UpdateStatus(tenantID string, campaignID int, status model.CampaignStatus) error
	IncrementCounters(campaignID int, sentDelta, attemptDelta int) error

	// Enrollment
	Enroll(campaignID, contactID int, score float64) (*model.CampaignContact, error)
	ListContacts(campaignID int) ([]model.CampaignContact, error)
	MarkContactSent(id int) error
	MarkContactFailed(id int) error
	UpdateContactStatus(id int, status model.ContactStatus) error
	ContactStats(campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, tenant_id, name, channel, status, daily_cap, window_start, window_end,
retry_on_failure, max_retries, min_score, agent_ref, template, sent_count, total_attempts, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Channel, &c.Status, &c.DailyCap,
		&c.WindowStart, &c.WindowEnd, &c.RetryOnFailure, &c.MaxRetries, &c.MinScore,
		&c.AgentRef, &c.Template, &c.SentCount, &c.TotalAttempts, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (tenant_id, name, channel, status, daily_cap, window_start, window_end,
            retry_on_failure, max_retries, min_score, agent_ref, template, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.TenantID, c.Name, c.Channel, c.Status, c.DailyCap,
		c.WindowStart, c.WindowEnd, c.RetryOnFailure, c.MaxRetries, c.MinScore,
		c.AgentRef, c.Template, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(tenantID string, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id=$1 AND id=$2`
	c, err := scanCampaign(r.DB.QueryRow(query, tenantID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListRunning(tenantID string) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status='running'`
	args := []any{}
	if tenantID != "" {
		query += ` AND tenant_id=$1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) ListCampaigns(tenantID string, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id=$1`
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE tenant_id=$1`
	args := []any{tenantID}
	argPos := 2

	if channel != "" {
		clause := fmt.Sprintf(" AND channel=$%d", argPos)
		query += clause
		countQuery += clause
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		clause := fmt.Sprintf(" AND status=$%d", argPos)
		query += clause
		countQuery += clause
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(tenantID string, campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE tenant_id=$2 AND id=$3`
	res, err := r.DB.Exec(query, status, tenantID, campaignID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return nil
}

func (r *CampaignRepository) IncrementCounters(campaignID int, sentDelta, attemptDelta int) error {
	query := `UPDATE campaigns
        SET sent_count = sent_count + $1, total_attempts = total_attempts + $2, updated_at=NOW()
        WHERE id=$3`
	_, err := r.DB.Exec(query, sentDelta, attemptDelta, campaignID)
	return err
}

// ====================== Enrollment ======================

// Enroll is an idempotent find-or-create backed by the unique
// (campaign_id, contact_id) constraint. Re-enrolling returns the existing row
// untouched, so attempt history survives duplicate requests.
func (r *CampaignRepository) Enroll(campaignID, contactID int, score float64) (*model.CampaignContact, error) {
	insert := `
        INSERT INTO campaign_contacts (campaign_id, contact_id, status, attempts, score, created_at, updated_at)
        VALUES ($1, $2, 'pending', 0, $3, NOW(), NOW())
        ON CONFLICT (campaign_id, contact_id) DO NOTHING
    `
	if _, err := r.DB.Exec(insert, campaignID, contactID, score); err != nil {
		return nil, err
	}

	query := `SELECT id, campaign_id, contact_id, status, attempts, score, created_at, updated_at
        FROM campaign_contacts WHERE campaign_id=$1 AND contact_id=$2`
	var cc model.CampaignContact
	err := r.DB.QueryRow(query, campaignID, contactID).Scan(
		&cc.ID, &cc.CampaignID, &cc.ContactID, &cc.Status, &cc.Attempts, &cc.Score,
		&cc.CreatedAt, &cc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

func (r *CampaignRepository) ListContacts(campaignID int) ([]model.CampaignContact, error) {
	query := `SELECT id, campaign_id, contact_id, status, attempts, score, created_at, updated_at
        FROM campaign_contacts WHERE campaign_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.CampaignContact{}
	for rows.Next() {
		var cc model.CampaignContact
		if err := rows.Scan(&cc.ID, &cc.CampaignID, &cc.ContactID, &cc.Status, &cc.Attempts,
			&cc.Score, &cc.CreatedAt, &cc.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, cc)
	}
	return contacts, rows.Err()
}

func (r *CampaignRepository) MarkContactSent(id int) error {
	query := `UPDATE campaign_contacts
        SET status='sent', attempts=attempts+1, updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *CampaignRepository) MarkContactFailed(id int) error {
	query := `UPDATE campaign_contacts
        SET status='failed', attempts=attempts+1, updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *CampaignRepository) UpdateContactStatus(id int, status model.ContactStatus) error {
	query := `UPDATE campaign_contacts SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

func (r *CampaignRepository) ContactStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_contacts WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0, "completed": 0, "converted": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
