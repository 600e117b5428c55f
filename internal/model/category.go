package model

// Category pairs a human label with the server classification value used
// to scope list queries.
type Category struct {
	Label string  `mapstructure:"label" yaml:"label"`
	Value ViewKey `mapstructure:"value" yaml:"value"`
}

// DefaultCategories mirrors the classes produced by the backend's
// classifier. Values must match the server strings exactly.
func DefaultCategories() []Category {
	return []Category{
		{Label: "All mail", Value: AllView},
		{Label: "Suspicious", Value: "Şüpheli veya Güvenlik İçerikli"},
		{Label: "Marketing", Value: "Pazarlama ve Reklam (Tanıtımlar)"},
		{Label: "Informational", Value: "Diğer"},
		{Label: "Personal", Value: "Sosyal"},
		{Label: "Business", Value: "İş ve Profesyonel İletişim"},
		{Label: "Subscriptions", Value: "Abonelik Bildirimleri"},
		{Label: "Billing", Value: "Fatura ve Finansal Bildirimler"},
	}
}

// CategoryLabel returns the label for key, falling back to the raw value.
func CategoryLabel(categories []Category, key ViewKey) string {
	if key.IsTrash() {
		return "Trash"
	}
	for _, c := range categories {
		if c.Value == key {
			return c.Label
		}
	}
	return string(key)
}
