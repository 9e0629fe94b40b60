package analyzer

// getPositiveWords returns the curated Persian positive sentiment lexicon.
func getPositiveWords() []string {
	return []string{
		"خوب", "عالی", "مثبت", "زیبا", "دوست‌داشتنی", "موفق", "فرخنده",
		"شاد", "خوش", "بهتر", "دلنشین", "قدرتمند", "پیروزمند", "شاداب",
	}
}

// getNegativeWords returns the curated Persian negative sentiment lexicon.
func getNegativeWords() []string {
	return []string{
		"بد", "منفی", "زشت", "نفرت", "غمگین", "شکست", "تلخ", "خطرناک",
		"ناامید", "بدتر", "بی‌رحم", "ضعیف", "تراژدی", "اندوه",
	}
}

// TableRow is one entry of the entity lexicon.
type TableRow struct {
	Name  string
	Label string
}

// getEntityTable returns the curated entity lexicon in its curated order.
// The matcher sorts it by descending name length before use.
func getEntityTable() []TableRow {
	return []TableRow{
		// Persons
		{"کوروش بزرگ", "PER"},
		{"کوروش", "PER"},
		{"داریوش", "PER"},
		{"داریوش بزرگ", "PER"},
		{"خشایارشا", "PER"},
		{"کمبوجیه", "PER"},
		{"اردشیر", "PER"},
		{"اسکندر مقدونی", "PER"},
		{"اسکندر", "PER"},
		// Organisations / states
		{"امپراتوری هخامنشی", "ORG"},
		{"شاهنشاهی هخامنشی", "ORG"},
		{"امپراتوری ساسانی", "ORG"},
		{"شاهنشاهی ساسانی", "ORG"},
		// Locations
		{"ایران", "LOC"},
		{"پارس", "LOC"},
		{"یونان", "LOC"},
		{"مصر", "LOC"},
		{"بابل", "LOC"},
	}
}
