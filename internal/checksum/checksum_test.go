package checksum

import (
	"testing"

	"github.com/starford/noteku/internal/models"
)

func TestSum_Known(t *testing.T) {
	// sha256("") is a well-known constant.
	if got := Sum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestNote_IgnoresIDAndDate(t *testing.T) {
	a := models.Note{ID: "1", Title: "t", Content: "c", Category: models.CategoryWork, Date: "1/1"}
	b := models.Note{ID: "2", Title: "t", Content: "c", Category: models.CategoryWork, Date: "2/2"}
	if Note(a) != Note(b) {
		t.Error("revision should not depend on id or date")
	}
}

func TestNote_FieldBoundaries(t *testing.T) {
	a := models.Note{Title: "ab", Content: "c"}
	b := models.Note{Title: "a", Content: "bc"}
	if Note(a) == Note(b) {
		t.Error("moving text between fields must change the revision")
	}
}
