package model

import "time"

// Plan is a purchasable challenge tier. StartBalance seeds the equity of every
// challenge created from the plan.
type Plan struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	PriceDh      float64   `gorm:"not null" json:"price_dh"`
	FeaturesJSON string    `gorm:"type:text" json:"-"`
	StartBalance float64   `gorm:"not null;default:5000" json:"start_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Challenges []Challenge `gorm:"foreignKey:PlanID" json:"challenges,omitempty"`
}

func (Plan) TableName() string {
	return "plans"
}
