package scenario

import (
	"fmt"

	"github.com/tuetschek/en-deep/internal/task"
)

// ResourceClass distinguishes how strictly a resource's producer is
// validated. Datasets must be produced by exactly one task; plain files
// and individual features without a known producer are assumed to exist
// before the run starts.
type ResourceClass string

const (
	ClassDataset ResourceClass = "dataset"
	ClassFile    ResourceClass = "file"
	ClassFeature ResourceClass = "feature"
)

// MandatoryProducer reports whether a missing producer for this class is
// a data error at plan-build time.
func (c ResourceClass) MandatoryProducer() bool {
	return c == ClassDataset
}

// Occurrence records which task produces a resource and which tasks
// consume it.
type Occurrence struct {
	Resource  string
	Producer  *task.Description // nil if never produced
	Consumers []*task.Description
}

// Index collects resource occurrences per class for a whole scenario.
type Index struct {
	classes map[ResourceClass]map[string]*Occurrence
}

// NewIndex creates an empty occurrence index.
func NewIndex() *Index {
	return &Index{classes: map[ResourceClass]map[string]*Occurrence{
		ClassDataset: {},
		ClassFile:    {},
		ClassFeature: {},
	}}
}

func (x *Index) occurrence(class ResourceClass, resource string) *Occurrence {
	oc, ok := x.classes[class][resource]
	if !ok {
		oc = &Occurrence{Resource: resource}
		x.classes[class][resource] = oc
	}
	return oc
}

// AddProducer records that desc declares resource as an output.
// A resource with two producers is ambiguous and rejected.
func (x *Index) AddProducer(class ResourceClass, resource string, desc *task.Description) error {
	oc := x.occurrence(class, resource)
	if oc.Producer != nil && oc.Producer != desc {
		return fmt.Errorf("%s %q is produced by both %q and %q",
			class, resource, oc.Producer.Name, desc.Name)
	}
	oc.Producer = desc
	return nil
}

// AddConsumer records that desc declares resource as an input.
func (x *Index) AddConsumer(class ResourceClass, resource string, desc *task.Description) {
	oc := x.occurrence(class, resource)
	oc.Consumers = append(oc.Consumers, desc)
}

// Class returns all occurrences of the given class, keyed by resource name.
func (x *Index) Class(class ResourceClass) map[string]*Occurrence {
	return x.classes[class]
}
