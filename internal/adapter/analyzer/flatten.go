package analyzer

import (
	"sort"
	"strconv"
	"strings"

	"tourrag/internal/domain"
)

// Flatten renders an attraction record as one line per present field, in a
// fixed order. Absent fields produce no line.
func Flatten(rec domain.AttractionRecord) string {
	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Name", rec.Name)
	add("Type", rec.Type)
	add("Description", rec.Description)

	var tags []string
	for _, tag := range rec.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	add("Tags", strings.Join(tags, ", "))

	if rec.Location != nil {
		add("Location", joinPresent(" | ", rec.Location.Address, rec.Location.Region))
	}

	if len(rec.Reviews) > 0 {
		add("Review", formatReview(rec.Reviews[0]))
	}

	add("Notes", rec.Notes)

	if rec.Advisories != nil {
		add("Safety advisory", rec.Advisories.Safety)
		add("Travel advisory", rec.Advisories.Travel)
	}

	if len(rec.Popularity) > 0 {
		audiences := make([]string, 0, len(rec.Popularity))
		for audience := range rec.Popularity {
			audiences = append(audiences, audience)
		}
		sort.Strings(audiences)

		parts := make([]string, 0, len(audiences))
		for _, audience := range audiences {
			parts = append(parts, audience+": "+rec.Popularity[audience])
		}
		add("Popularity", strings.Join(parts, ", "))
	}

	return strings.Join(lines, "\n")
}

// formatReview builds "{source} rated {rating} from {count} reviews. {summary}"
// leaving out whatever is missing.
func formatReview(r domain.Review) string {
	var head []string
	if r.Source != "" {
		head = append(head, r.Source)
	}
	if r.Rating > 0 {
		head = append(head, "rated "+strconv.FormatFloat(r.Rating, 'f', -1, 64))
	}
	if r.Count > 0 {
		head = append(head, "from "+strconv.Itoa(r.Count)+" reviews")
	}

	out := strings.Join(head, " ")
	if out != "" {
		out += "."
	}
	if summary := strings.TrimSpace(r.Summary); summary != "" {
		out = joinPresent(" ", out, summary)
	}
	return out
}

func joinPresent(sep string, parts ...string) string {
	present := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, sep)
}
