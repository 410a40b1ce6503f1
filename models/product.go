package models

import "time"

type Product struct {
	ProductID   string    `json:"productid" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price"`
	Slug        string    `json:"slug" bson:"slug"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Images      []string  `json:"images,omitempty" bson:"images,omitempty"`
	Feedback    []string  `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Comments    []string  `json:"comments,omitempty" bson:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updatedAt"`
}

type Category struct {
	CategoryID string    `json:"categoryid" bson:"categoryid"`
	Name       string    `json:"name" bson:"name"`
	Parent     string    `json:"parent,omitempty" bson:"parent,omitempty"`
	CreatedBy  string    `json:"-" bson:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updatedAt"`
}

// IsParent reports whether this is a main category (no parent).
func (c *Category) IsParent() bool { return c.Parent == "" }
