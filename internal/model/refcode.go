package model

import (
	"fmt"
	"math/rand"
	"strings"
)

var kindPrefixes = map[SubmissionKind]string{
	KindGrievance:  "GRV",
	KindSuggestion: "SUG",
	KindVolunteer:  "VOL",
	KindSubscriber: "SUB",
}

// NewReferenceCode generates the public identifier for a submission: a
// 3-letter kind prefix followed by 5 random decimal digits (10000-99999).
// Uniqueness is not checked before insertion; the ID space is accepted as
// large enough for a single constituency (see DESIGN.md).
func NewReferenceCode(kind SubmissionKind) string {
	return fmt.Sprintf("%s%d", kindPrefixes[kind], 10000+rand.Intn(90000))
}

// KindForReference maps a reference code back to its submission kind by the
// 3-letter prefix.
func KindForReference(ref string) (SubmissionKind, bool) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	for kind, prefix := range kindPrefixes {
		if strings.HasPrefix(ref, prefix) {
			return kind, true
		}
	}
	return "", false
}
