package models

import "strings"

// ClientType distinguishes natural persons from companies.
type ClientType string

const (
	ClientTypeIndividual ClientType = "Individual"
	ClientTypeBusiness   ClientType = "Business"
)

// Client is the policyholder. Clients are managed by a separate service;
// this engine only reads them to validate references and annotate reports.
//
// Phone and TIN are unique per creating user, not globally: two brokers may
// each onboard the same company.
type Client struct {
	Base
	Type            ClientType `gorm:"not null" json:"type"`
	FirstName       string     `json:"first_name,omitempty"`
	FatherName      string     `json:"father_name,omitempty"`
	GrandfatherName string     `json:"grandfather_name,omitempty"`
	CompanyName     string     `json:"company_name,omitempty"`
	Phone           string     `gorm:"not null;uniqueIndex:idx_clients_creator_phone" json:"phone"`
	Email           string     `json:"email,omitempty"`
	TINNumber       *string    `gorm:"uniqueIndex:idx_clients_creator_tin" json:"tin_number,omitempty"`
	CreatedBy       string     `gorm:"type:uuid;not null;uniqueIndex:idx_clients_creator_phone;uniqueIndex:idx_clients_creator_tin" json:"created_by"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
}

// DisplayName returns the company name for businesses and the full name for individuals.
func (c Client) DisplayName() string {
	if c.Type == ClientTypeBusiness && c.CompanyName != "" {
		return c.CompanyName
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.FatherName, c.GrandfatherName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
