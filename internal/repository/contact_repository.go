package repository

import (
	"database/sql"

	"github.com/crmforge/outreach-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	GetByID(tenantID string, id int) (*model.Contact, error)
	ListAll(tenantID string) ([]model.Contact, error)
	Create(c *model.Contact) error
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, tenant_id, first_name, last_name, phone, email, city, source, score`

// GetByID fetches a contact by ID within the tenant
func (r *ContactRepository) GetByID(tenantID string, id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE tenant_id=$1 AND id=$2`
	row := r.DB.QueryRow(query, tenantID, id)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Phone, &c.Email,
		&c.City, &c.Source, &c.Score); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

// ListAll fetches every contact in the tenant
func (r *ContactRepository) ListAll(tenantID string) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE tenant_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Phone, &c.Email,
			&c.City, &c.Source, &c.Score); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) Create(c *model.Contact) error {
	query := `
        INSERT INTO contacts (tenant_id, first_name, last_name, phone, email, city, source, score)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.TenantID, c.FirstName, c.LastName, c.Phone, c.Email,
		c.City, c.Source, c.Score).Scan(&c.ID)
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
