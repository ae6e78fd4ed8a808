package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Search kinds, one per proxied route.
const (
	KindFlights    = "flights"
	KindVisa       = "visa-requirements"
	KindAirports   = "nearest-airports"
	KindHotels     = "hotels"
	KindActivities = "activities"
)

// SummaryRow is one printable line describing a provider result.
type SummaryRow struct {
	Title  string
	Detail string
	Amount string
}

// Summarize picks the fields worth printing out of a raw provider payload.
// Unknown shapes degrade to a key/value listing instead of failing.
func Summarize(kind string, payload []byte, limit int) []SummaryRow {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	parsed := gjson.ParseBytes(payload)

	if !parsed.IsArray() {
		return summarizeObject(kind, parsed, limit)
	}

	var rows []SummaryRow
	for _, item := range parsed.Array() {
		if limit > 0 && len(rows) >= limit {
			break
		}
		switch kind {
		case KindFlights:
			rows = append(rows, flightRow(item))
		case KindHotels:
			rows = append(rows, hotelRow(item))
		case KindAirports:
			rows = append(rows, airportRow(item))
		case KindActivities:
			rows = append(rows, activityRow(item))
		default:
			rows = append(rows, SummaryRow{Title: truncate(item.Raw, 90)})
		}
	}
	return rows
}

func flightRow(r gjson.Result) SummaryRow {
	segments := r.Get("itineraries.0.segments").Array()

	row := SummaryRow{Title: "Flight offer"}
	if len(segments) > 0 {
		first, last := segments[0], segments[len(segments)-1]
		carrier := first.Get("carrierCode").String()
		row.Title = fmt.Sprintf("%s %s%s", airlineName(carrier), carrier, first.Get("number").String())

		stops := "Direct"
		if n := len(segments) - 1; n > 0 {
			stops = fmt.Sprintf("%d stop(s)", n)
		}
		row.Detail = fmt.Sprintf("%s %s -> %s %s",
			first.Get("departure.iataCode").String(), first.Get("departure.at").String(),
			last.Get("arrival.iataCode").String(), last.Get("arrival.at").String())
		if d := parseDuration(r.Get("itineraries.0.duration").String()); d != "" {
			row.Detail += " · " + d
		}
		row.Detail += " · " + stops
	}

	total := r.Get("price.grandTotal").String()
	if total == "" {
		total = r.Get("price.total").String()
	}
	row.Amount = joinNonEmpty(" ", total, r.Get("price.currency").String())
	return row
}

func hotelRow(r gjson.Result) SummaryRow {
	row := SummaryRow{Title: r.Get("hotel.name").String()}
	if row.Title == "" {
		row.Title = r.Get("name").String()
	}

	var details []string
	if city := r.Get("hotel.cityCode").String(); city != "" {
		details = append(details, city)
	}
	if rating := r.Get("hotel.rating").String(); rating != "" {
		details = append(details, rating+" stars")
	}
	if room := r.Get("offers.0.room.typeEstimated.category").String(); room != "" {
		details = append(details, strings.ToLower(strings.ReplaceAll(room, "_", " ")))
	}
	row.Detail = strings.Join(details, " · ")

	row.Amount = joinNonEmpty(" ",
		r.Get("offers.0.price.total").String(),
		r.Get("offers.0.price.currency").String())
	return row
}

func airportRow(r gjson.Result) SummaryRow {
	row := SummaryRow{Title: r.Get("name").String()}
	if code := r.Get("iataCode").String(); code != "" {
		row.Title += " (" + code + ")"
	}
	row.Detail = joinNonEmpty(", ", r.Get("address.cityName").String(), r.Get("address.countryCode").String())
	row.Amount = joinNonEmpty(" ", r.Get("distance.value").String(), r.Get("distance.unit").String())
	return row
}

func activityRow(r gjson.Result) SummaryRow {
	return SummaryRow{
		Title:  r.Get("name").String(),
		Detail: truncate(stripTags(r.Get("shortDescription").String()), 120),
		Amount: joinNonEmpty(" ", r.Get("price.amount").String(), r.Get("price.currencyCode").String()),
	}
}

func summarizeObject(kind string, r gjson.Result, limit int) []SummaryRow {
	if kind == KindVisa && r.Get("visa").Exists() {
		visa := r.Get("visa")
		required := "unknown"
		if v := visa.Get("required"); v.Exists() {
			required = map[bool]string{true: "yes", false: "no"}[v.Bool()]
		}
		return []SummaryRow{
			{Title: "Visa", Detail: visa.Get("type").String(), Amount: "required: " + required},
		}
	}

	if !r.IsObject() {
		return []SummaryRow{{Title: truncate(r.Raw, 90)}}
	}

	m := r.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]SummaryRow, 0, len(keys))
	for _, k := range keys {
		if limit > 0 && len(rows) >= limit {
			break
		}
		v := m[k]
		detail := v.String()
		if v.IsObject() || v.IsArray() {
			detail = v.Raw
		}
		rows = append(rows, SummaryRow{Title: k, Detail: truncate(detail, 120)})
	}
	return rows
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// parseDuration converts ISO 8601 duration (PT5H30M) to human readable (5h 30m)
func parseDuration(iso string) string {
	if iso == "" {
		return ""
	}
	iso = strings.TrimPrefix(iso, "PT")
	result := ""
	if hIdx := strings.Index(iso, "H"); hIdx >= 0 {
		result += iso[:hIdx] + "h"
		iso = iso[hIdx+1:]
	}
	if mIdx := strings.Index(iso, "M"); mIdx >= 0 {
		if result != "" {
			result += " "
		}
		result += iso[:mIdx] + "m"
	}
	return result
}

// airlineName returns full airline name from IATA code
func airlineName(code string) string {
	names := map[string]string{
		"TK": "Turkish Airlines",
		"LH": "Lufthansa",
		"AF": "Air France",
		"BA": "British Airways",
		"EK": "Emirates",
		"QR": "Qatar Airways",
		"FR": "Ryanair",
		"U2": "EasyJet",
		"W6": "Wizz Air",
		"UA": "United Airlines",
		"AA": "American Airlines",
		"DL": "Delta Air Lines",
		"B6": "JetBlue",
		"VS": "Virgin Atlantic",
		"KL": "KLM",
		"IB": "Iberia",
		"AZ": "ITA Airways",
		"LX": "Swiss International Air Lines",
		"SQ": "Singapore Airlines",
		"CX": "Cathay Pacific",
		"NH": "ANA",
		"JL": "Japan Airlines",
		"EY": "Etihad Airways",
		"AC": "Air Canada",
	}
	if name, ok := names[code]; ok {
		return name
	}
	if code != "" {
		return code
	}
	return "Unknown airline"
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
