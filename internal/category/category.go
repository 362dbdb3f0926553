package category

import (
	"github.com/frahmantamala/expense-approval/internal/expense"
)

type CategoryResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// descriptions annotates the fixed category set for the UI. The set
// itself lives with the expense domain, which validates against it.
var descriptions = map[string]string{
	"travel":          "Flights, trains, taxis and other transport",
	"meals":           "Business meals and client entertainment",
	"accommodation":   "Hotels and short-term stays",
	"office_supplies": "Stationery and small office equipment",
	"software":        "Licenses and subscriptions",
	"training":        "Courses, conferences and certifications",
	"other":           "Anything that fits no other category",
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) GetAllCategories() []CategoryResponse {
	names := expense.Categories()
	out := make([]CategoryResponse, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryResponse{
			Name:        name,
			Description: descriptions[name],
		})
	}
	return out
}

func (s *Service) IsValidCategory(name string) bool {
	return expense.IsValidCategory(name)
}
