package awsquery

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// ResourceLookup is the narrow capability a domain object holds for lazy
// cross-resource fetches (e.g. resolving an attachment's volume). It is a
// non-owning reference to the client that produced the object and must not
// outlive it.
type ResourceLookup interface {
	Call(ctx context.Context, action string, params map[string]string) ([]Object, error)
}

// ResponseMeta carries the response-level fields shared by every object
// materialized from one response.
type ResponseMeta struct {
	Action    string
	RequestID string
	Namespace string
}

// Object is a typed wrapper around a parsed response subtree.
type Object interface {
	Payload() Payload
	RequestID() string
	Namespace() string
}

type object struct {
	payload Payload
	meta    ResponseMeta
	lookup  ResourceLookup
}

func (o *object) Payload() Payload {
	return o.payload
}

func (o *object) RequestID() string {
	return o.meta.RequestID
}

func (o *object) Namespace() string {
	return o.meta.Namespace
}

// Raw is the fallback object for unregistered actions: the whole parsed
// document, reachable through the Payload accessors.
type Raw struct {
	object
}

func newRaw(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &Raw{object{payload: p, meta: meta, lookup: lookup}}
}

// Reservation is one element of an EC2 DescribeInstances reservation set.
type Reservation struct {
	object
}

func newReservation(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &Reservation{object{payload: p, meta: meta, lookup: lookup}}
}

func (r *Reservation) ID() string {
	return r.payload.Str("reservationId")
}

func (r *Reservation) OwnerID() string {
	return r.payload.Str("ownerId")
}

func (r *Reservation) Instances() []*Instance {
	var out []*Instance
	for _, p := range r.payload.List("instancesSet", tagItem) {
		out = append(out, &Instance{object{payload: p, meta: r.meta, lookup: r.lookup}})
	}
	return out
}

type Instance struct {
	object
}

func (i *Instance) ID() string {
	return i.payload.Str("instanceId")
}

func (i *Instance) ImageID() string {
	return i.payload.Str("imageId")
}

func (i *Instance) State() string {
	return i.payload.Str("instanceState", "name")
}

func (i *Instance) Type() string {
	return i.payload.Str("instanceType")
}

func (i *Instance) PrivateIP() string {
	return i.payload.Str("privateIpAddress")
}

func (i *Instance) PublicIP() string {
	return i.payload.Str("ipAddress")
}

func (i *Instance) Zone() string {
	return i.payload.Str("placement", "availabilityZone")
}

// Tags returns the instance's tag set, flattened to key/value text.
func (i *Instance) Tags() map[string]string {
	return i.payload.StrMap("tagSet", tagItem)
}

type Volume struct {
	object
}

func newVolume(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &Volume{object{payload: p, meta: meta, lookup: lookup}}
}

func (v *Volume) ID() string {
	return v.payload.Str("volumeId")
}

func (v *Volume) Status() string {
	return v.payload.Str("status")
}

func (v *Volume) Zone() string {
	return v.payload.Str("availabilityZone")
}

// Size returns the volume size in GiB, or 0 when unreported.
func (v *Volume) Size() int {
	n, _ := strconv.Atoi(v.payload.Str("size"))
	return n
}

func (v *Volume) Attachments() []*Attachment {
	var out []*Attachment
	for _, p := range v.payload.List("attachmentSet", tagItem) {
		out = append(out, &Attachment{object{payload: p, meta: v.meta, lookup: v.lookup}})
	}
	return out
}

// Attachment is a volume attachment. It can resolve its owning volume and
// instance through the lookup capability it was materialized with.
type Attachment struct {
	object
}

func newAttachment(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &Attachment{object{payload: p, meta: meta, lookup: lookup}}
}

func (a *Attachment) VolumeID() string {
	return a.payload.Str("volumeId")
}

func (a *Attachment) InstanceID() string {
	return a.payload.Str("instanceId")
}

func (a *Attachment) Device() string {
	return a.payload.Str("device")
}

func (a *Attachment) Status() string {
	return a.payload.Str("status")
}

// Volume fetches the full volume this attachment refers to. It returns nil
// without error when the volume no longer exists.
func (a *Attachment) Volume(ctx context.Context) (*Volume, error) {
	objects, err := a.lookup.Call(ctx, "DescribeVolumes", map[string]string{"VolumeId.1": a.VolumeID()})
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		if v, ok := o.(*Volume); ok {
			return v, nil
		}
	}
	return nil, nil
}

// Instance fetches the instance this attachment is attached to. It returns
// nil without error when the instance no longer exists.
func (a *Attachment) Instance(ctx context.Context) (*Instance, error) {
	objects, err := a.lookup.Call(ctx, "DescribeInstances", map[string]string{"InstanceId.1": a.InstanceID()})
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		r, ok := o.(*Reservation)
		if !ok {
			continue
		}
		for _, i := range r.Instances() {
			if i.ID() == a.InstanceID() {
				return i, nil
			}
		}
	}
	return nil, nil
}

// Tag is one element of a DescribeTags result, kept as a distinct item
// rather than collapsed into a mapping (the action registers with
// NoKeyAttr).
type Tag struct {
	object
}

func newTag(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &Tag{object{payload: p, meta: meta, lookup: lookup}}
}

func (t *Tag) Key() string {
	return t.payload.Str("key")
}

func (t *Tag) Value() string {
	return t.payload.Str("value")
}

func (t *Tag) ResourceID() string {
	return t.payload.Str("resourceId")
}

func (t *Tag) ResourceType() string {
	return t.payload.Str("resourceType")
}

type ConsoleOutput struct {
	object
}

func newConsoleOutput(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &ConsoleOutput{object{payload: p, meta: meta, lookup: lookup}}
}

func (c *ConsoleOutput) InstanceID() string {
	return c.payload.Str("instanceId")
}

func (c *ConsoleOutput) Timestamp() time.Time {
	t, _ := time.Parse(time.RFC3339, c.payload.Str("timestamp"))
	return t
}

// Output returns the decoded console text. The wire value is base64, often
// wrapped across lines.
func (c *ConsoleOutput) Output() string {
	raw := strings.Join(strings.Fields(c.payload.Str("output")), "")
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return raw
	}
	return string(b)
}

// LoadBalancer is one member of an ELB DescribeLoadBalancers description
// list.
type LoadBalancer struct {
	object
}

func newLoadBalancer(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &LoadBalancer{object{payload: p, meta: meta, lookup: lookup}}
}

func (lb *LoadBalancer) Name() string {
	return lb.payload.Str("LoadBalancerName")
}

func (lb *LoadBalancer) DNSName() string {
	return lb.payload.Str("DNSName")
}

func (lb *LoadBalancer) Scheme() string {
	return lb.payload.Str("Scheme")
}

func (lb *LoadBalancer) AvailabilityZones() []string {
	return lb.payload.Strings("AvailabilityZones", tagMember)
}

func (lb *LoadBalancer) InstanceIDs() []string {
	var out []string
	for _, p := range lb.payload.List("Instances", tagMember) {
		if id := p.Str("InstanceId"); id != "" {
			out = append(out, id)
		}
	}
	return out
}

type DBInstance struct {
	object
}

func newDBInstance(p Payload, meta ResponseMeta, lookup ResourceLookup) Object {
	return &DBInstance{object{payload: p, meta: meta, lookup: lookup}}
}

func (db *DBInstance) ID() string {
	return db.payload.Str("DBInstanceIdentifier")
}

func (db *DBInstance) Engine() string {
	return db.payload.Str("Engine")
}

func (db *DBInstance) Status() string {
	return db.payload.Str("DBInstanceStatus")
}

func (db *DBInstance) EndpointAddress() string {
	return db.payload.Str("Endpoint", "Address")
}

func (db *DBInstance) EndpointPort() int {
	n, _ := strconv.Atoi(db.payload.Str("Endpoint", "Port"))
	return n
}

// Error is a structured AWS API error decoded from an HTTP 400 response
// envelope. It is returned as the call's error value and recorded as the
// client's last error.
type Error struct {
	code      string
	message   string
	requestID string
}

func (e *Error) Error() string {
	return e.code + ": " + e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Message() string {
	return e.message
}

func (e *Error) RequestID() string {
	return e.requestID
}
