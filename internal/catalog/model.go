package catalog

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateCategoryRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code" binding:"required"`
	IsDisabled bool   `json:"is_disabled"`
}

// Category is a product category. Its code prefixes generated stock ids.
type Category struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsDisabled bool   `json:"is_disabled"`
}
