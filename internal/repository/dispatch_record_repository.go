package repository

import (
	"database/sql"
	"time"

	"github.com/crmforge/outreach-backend/internal/model"
)

type DispatchRecordRepositoryInterface interface {
	Create(rec *model.DispatchRecord) error
	GetByID(id int) (*model.DispatchRecord, error)
	MarkFailed(id int, errMsg string) error
	SetProviderRef(id int, ref string) error
	CountSince(campaignID int, since time.Time) (int, error)
	ListByCampaign(campaignID int, limit int) ([]model.DispatchRecord, error)
	ApplyEngagement(providerRef, event string, at time.Time) error
	Stats(campaignID int) (map[string]int, error)
	EngagementStats(campaignID int) (map[string]int, error)
}

type DispatchRecordRepository struct {
	DB *sql.DB
}

const recordColumns = `id, tenant_id, campaign_id, contact_id, channel, contact_name, phone, email,
status, provider_ref, last_error, sent_at, delivered_at, opened_at, clicked_at, replied_at`

func scanRecord(row interface{ Scan(...any) error }) (*model.DispatchRecord, error) {
	var rec model.DispatchRecord
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.CampaignID, &rec.ContactID, &rec.Channel,
		&rec.ContactName, &rec.Phone, &rec.Email, &rec.Status, &rec.ProviderRef, &rec.LastError,
		&rec.SentAt, &rec.DeliveredAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts an attempt record. Called before the provider send so a
// crash mid-call still leaves the attempt on record.
func (r *DispatchRecordRepository) Create(rec *model.DispatchRecord) error {
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	query := `
        INSERT INTO dispatch_records
            (tenant_id, campaign_id, contact_id, channel, contact_name, phone, email, status, provider_ref, last_error, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(query, rec.TenantID, rec.CampaignID, rec.ContactID, rec.Channel,
		rec.ContactName, rec.Phone, rec.Email, rec.Status, rec.ProviderRef, rec.LastError,
		rec.SentAt).Scan(&rec.ID)
}

func (r *DispatchRecordRepository) GetByID(id int) (*model.DispatchRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM dispatch_records WHERE id=$1`
	rec, err := scanRecord(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *DispatchRecordRepository) MarkFailed(id int, errMsg string) error {
	query := `UPDATE dispatch_records SET status='failed', last_error=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, errMsg, id)
	return err
}

func (r *DispatchRecordRepository) SetProviderRef(id int, ref string) error {
	query := `UPDATE dispatch_records SET provider_ref=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, ref, id)
	return err
}

// CountSince counts attempts for the campaign created at or after the given
// instant. The run loop passes local midnight to get today's spend.
func (r *DispatchRecordRepository) CountSince(campaignID int, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM dispatch_records WHERE campaign_id=$1 AND sent_at >= $2`,
		campaignID, since).Scan(&count)
	return count, err
}

func (r *DispatchRecordRepository) ListByCampaign(campaignID int, limit int) ([]model.DispatchRecord, error) {
	if limit < 1 {
		limit = 50
	}
	query := `SELECT ` + recordColumns + ` FROM dispatch_records
        WHERE campaign_id=$1 ORDER BY sent_at DESC LIMIT $2`
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.DispatchRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ApplyEngagement appends a delivery/engagement timestamp to the record that
// carries the given provider reference. Unknown events are ignored by the
// caller before reaching here.
func (r *DispatchRecordRepository) ApplyEngagement(providerRef, event string, at time.Time) error {
	var query string
	switch event {
	case "delivered":
		query = `UPDATE dispatch_records SET status='delivered', delivered_at=$1 WHERE provider_ref=$2 AND delivered_at IS NULL`
	case "opened":
		query = `UPDATE dispatch_records SET opened_at=$1 WHERE provider_ref=$2 AND opened_at IS NULL`
	case "clicked":
		query = `UPDATE dispatch_records SET clicked_at=$1 WHERE provider_ref=$2 AND clicked_at IS NULL`
	case "replied":
		query = `UPDATE dispatch_records SET replied_at=$1 WHERE provider_ref=$2 AND replied_at IS NULL`
	default:
		return nil
	}
	_, err := r.DB.Exec(query, at, providerRef)
	return err
}

func (r *DispatchRecordRepository) Stats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM dispatch_records WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"sent": 0, "delivered": 0, "failed": 0}
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

// EngagementStats counts records with each engagement timestamp set.
func (r *DispatchRecordRepository) EngagementStats(campaignID int) (map[string]int, error) {
	query := `SELECT
            COUNT(*) FILTER (WHERE delivered_at IS NOT NULL),
            COUNT(*) FILTER (WHERE opened_at IS NOT NULL),
            COUNT(*) FILTER (WHERE clicked_at IS NOT NULL),
            COUNT(*) FILTER (WHERE replied_at IS NOT NULL)
        FROM dispatch_records WHERE campaign_id=$1`
	var delivered, opened, clicked, replied int
	if err := r.DB.QueryRow(query, campaignID).Scan(&delivered, &opened, &clicked, &replied); err != nil {
		return nil, err
	}
	return map[string]int{
		"delivered": delivered,
		"opened":    opened,
		"clicked":   clicked,
		"replied":   replied,
	}, nil
}

var _ DispatchRecordRepositoryInterface = (*DispatchRecordRepository)(nil)
