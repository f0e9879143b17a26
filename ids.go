package panlabel

import "fmt"

// ImageID, CategoryID and AnnotationID are distinct nominal types over the same underlying
// integer so that values from one ID namespace cannot be passed where another is expected by
// accident. The three namespaces are independent: the same numeric value may legitimately
// appear as an ImageID and a CategoryID in the same Dataset.
type (
	ImageID      uint64
	CategoryID   uint64
	AnnotationID uint64
)

func (id ImageID) String() string      { return fmt.Sprintf("image#%d", uint64(id)) }
func (id CategoryID) String() string   { return fmt.Sprintf("category#%d", uint64(id)) }
func (id AnnotationID) String() string { return fmt.Sprintf("annotation#%d", uint64(id)) }
