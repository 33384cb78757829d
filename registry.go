package awsquery

// Strategy selects how a response body maps onto objects.
type Strategy int

const (
	// StrategyWhole materializes the whole response document as one object.
	StrategyWhole Strategy = iota
	// StrategyFetchOne materializes one object from a nested tag.
	StrategyFetchOne
	// StrategyFetchItems descends into a container tag and materializes one
	// object per child item, normalizing a bare child to a one-element
	// sequence and a missing container to an empty result.
	StrategyFetchItems
)

// Constructor builds a domain object from its payload, the response
// metadata and the lookup capability used for lazy back-references.
type Constructor func(p Payload, meta ResponseMeta, lookup ResourceLookup) Object

// Directive declares how a registered action's response materializes.
type Directive struct {
	Strategy Strategy

	// Tag is the nested tag for StrategyFetchOne or the dot-separated
	// container tag path for StrategyFetchItems.
	Tag string

	// ItemTag overrides the item/member child tag for APIs that name list
	// children after the element type, such as RDS's DBInstance.
	ItemTag string

	// NoKeyAttr disables {key, value} pair flattening for responses whose
	// pairs must remain distinct items, such as DescribeTags.
	NoKeyAttr bool

	New Constructor
}

// Registry maps action names to directives. Populate it during process
// initialization: reads are unsynchronized, so registration must complete
// before concurrent dispatch begins. A lookup miss never fails; it falls
// back to a raw whole-document directive so that actions added by AWS after
// this table was written degrade gracefully.
type Registry struct {
	directives map[string]Directive
	fallback   Directive
}

func NewRegistry() *Registry {
	return &Registry{
		directives: make(map[string]Directive),
		fallback: Directive{
			Strategy: StrategyWhole,
			New:      newRaw,
		},
	}
}

func (r *Registry) Register(action string, d Directive) {
	if d.New == nil {
		d.New = newRaw
	}
	r.directives[action] = d
}

func (r *Registry) lookup(action string) Directive {
	if d, ok := r.directives[action]; ok {
		return d
	}
	return r.fallback
}

// NewDefaultRegistry returns a registry covering the common EC2, ELB and
// RDS actions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("DescribeInstances", Directive{Strategy: StrategyFetchItems, Tag: "reservationSet", New: newReservation})
	r.Register("RunInstances", Directive{Strategy: StrategyWhole, New: newReservation})
	r.Register("DescribeVolumes", Directive{Strategy: StrategyFetchItems, Tag: "volumeSet", New: newVolume})
	r.Register("CreateVolume", Directive{Strategy: StrategyWhole, New: newVolume})
	r.Register("AttachVolume", Directive{Strategy: StrategyWhole, New: newAttachment})
	r.Register("DetachVolume", Directive{Strategy: StrategyWhole, New: newAttachment})
	r.Register("DescribeTags", Directive{Strategy: StrategyFetchItems, Tag: "tagSet", NoKeyAttr: true, New: newTag})
	r.Register("GetConsoleOutput", Directive{Strategy: StrategyWhole, New: newConsoleOutput})
	r.Register("DescribeLoadBalancers", Directive{
		Strategy: StrategyFetchItems,
		Tag:      "DescribeLoadBalancersResult.LoadBalancerDescriptions",
		New:      newLoadBalancer,
	})
	r.Register("DescribeDBInstances", Directive{
		Strategy: StrategyFetchItems,
		Tag:      "DescribeDBInstancesResult.DBInstances",
		ItemTag:  "DBInstance",
		New:      newDBInstance,
	})

	return r
}
