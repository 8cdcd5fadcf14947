package dto

// UpdateSettingRequest upserts a business-rule setting.
type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=STRING INT BOOL JSON"`
}
