package testutil

import (
	"fmt"

	papertrail "github.com/eugener/papertrail/internal"
)

// Paper returns a minimal paper with a title derived from id.
func Paper(id string) papertrail.Paper {
	return papertrail.Paper{
		ID:      id,
		Title:   fmt.Sprintf("Paper %s", id),
		Year:    2020,
		Authors: []papertrail.Author{{ID: "a-" + id, Name: "Author " + id}},
	}
}
