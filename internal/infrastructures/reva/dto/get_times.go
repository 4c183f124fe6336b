package dto

type GetTimesRequest struct {
	EstablishmentID int64  `json:"establishment_id"`
	Duration        int    `json:"duration"`
	Date            string `json:"date"`
}

type TimeBlock struct {
	Start                string  `json:"start"`
	End                  string  `json:"end"`
	Fields               []Field `json:"fields"`
	AvailableFieldsCount int     `json:"available_fields_count"`
	Default              bool    `json:"default"`
}

type Field struct {
	Start            string  `json:"start"`
	End              string  `json:"end"`
	FieldID          int64   `json:"field_id"`
	Price            float64 `json:"price"`
	Size             string  `json:"size"`
	EstablishmentID  int64   `json:"establishment_id"`
	FieldName        string  `json:"field_name"`
	TerrainType      string  `json:"terrain_type"`
	HasRoof          bool    `json:"has_roof"`
	FieldPictureURL  string  `json:"field_picture_url"`
	FullFieldPicture string  `json:"full_field_picture_url"`
	Available        bool    `json:"available"`
	Reason           *string `json:"reason"`
	Modality         *string `json:"modality"`
}
