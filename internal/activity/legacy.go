package activity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Old entries carried status and zone only inside the free-text details,
// e.g. "อัปเดตสถานะเป็น: กำลังดำเนินการ (ม.ต้น)" or "status: completed".

const statusTokens = `กำลังดำเนินการ|รอดำเนินการ|รออะไหล่|เสร็จสิ้น|ยกเลิก|in[_ ]progress|waiting[_ ]parts|pending|completed|cancell?ed`

var (
	labelledStatusRe = regexp.MustCompile(`(?:สถานะ(?:เป็น)?|status)\s*(?:เป็น)?\s*[:：=]?\s*(` + statusTokens + `)`)
	targetStatusRe   = regexp.MustCompile(`(?:เป็น|→|->|\bto)\s*[:：]?\s*(` + statusTokens + `)`)
	anyStatusRe      = regexp.MustCompile(`(` + statusTokens + `)`)
	zoneRe           = regexp.MustCompile(`(ม\.\s*ต้น|ม\.\s*ปลาย|มัธยมต้น|มัธยมปลาย|ส่วนกลาง|junior[_ ]high|senior[_ ]high|common)`)
)

var statusByToken = map[string]string{
	"กำลังดำเนินการ": "in_progress",
	"รอดำเนินการ":    "pending",
	"รออะไหล่":       "waiting_parts",
	"เสร็จสิ้น":      "completed",
	"ยกเลิก":         "cancelled",
	"in_progress":    "in_progress",
	"in progress":    "in_progress",
	"waiting_parts":  "waiting_parts",
	"waiting parts":  "waiting_parts",
	"pending":        "pending",
	"completed":      "completed",
	"cancelled":      "cancelled",
	"canceled":       "cancelled",
}

func zoneFor(tok string) string {
	tok = strings.Join(strings.Fields(tok), "")
	switch tok {
	case "ม.ต้น", "มัธยมต้น", "junior_high", "juniorhigh":
		return "junior_high"
	case "ม.ปลาย", "มัธยมปลาย", "senior_high", "seniorhigh":
		return "senior_high"
	case "ส่วนกลาง", "common":
		return "common"
	}
	return ""
}

// ParseLegacyDetails extracts the repair status and zone embedded in a
// legacy details string. Missing values come back empty.
func ParseLegacyDetails(details string) (status, zone string) {
	s := strings.ToLower(norm.NFC.String(details))

	for _, re := range []*regexp.Regexp{labelledStatusRe, targetStatusRe, anyStatusRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			status = statusByToken[m[1]]
			break
		}
	}
	if m := zoneRe.FindStringSubmatch(s); m != nil {
		zone = zoneFor(m[1])
	}
	return status, zone
}
