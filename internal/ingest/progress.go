package ingest

import "github.com/dshills/apidex/pkg/types"

// Progress receives ingestion progress. Start is called once with the number
// of classes, functions and methods in the document; Increment once per entity.
type Progress interface {
	Start(total int)
	Increment(kind types.EntityType, qualifiedName string)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int) {}

func (nopProgress) Increment(types.EntityType, string) {}

func (nopProgress) Finish() {}
