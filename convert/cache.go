package convert

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/anirudhraja/frpc/logging"
	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/sets/treeset"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Caches keyed by cacheKey. Descriptors are read-only once built, so the
// first stored entry stays valid for the life of the process.
var (
	goTypes      sync.Map // cacheKey -> reflect.Type
	constructors sync.Map // cacheKey -> constructor
)

// cacheKey identifies t by shape, so rebuilding an equal descriptor reuses
// the same entries. Descriptors carrying a custom constructor are keyed by
// pointer since two constructors cannot be compared.
func cacheKey(t *schema.Type) interface{} {
	if hasConstructor(t) {
		return t
	}
	return t.String()
}

func hasConstructor(t *schema.Type) bool {
	if t == nil {
		return false
	}
	if t.New != nil {
		return true
	}
	return hasConstructor(t.Elem) || hasConstructor(t.Key) || hasConstructor(t.Value)
}

var interfaceType = reflect.TypeOf((*interface{})(nil)).Elem()

var scalarGoTypes = map[schema.ScalarType]reflect.Type{
	schema.TypeBool:          reflect.TypeOf(false),
	schema.TypeInt:           reflect.TypeOf(int32(0)),
	schema.TypeLong:          reflect.TypeOf(int64(0)),
	schema.TypeFloat:         reflect.TypeOf(float32(0)),
	schema.TypeDouble:        reflect.TypeOf(float64(0)),
	schema.TypeString:        reflect.TypeOf(""),
	schema.TypeBinary:        reflect.TypeOf([]byte(nil)),
	schema.TypeDateTime:      reflect.TypeOf(time.Time{}),
	schema.TypeLocalDateTime: reflect.TypeOf(wire.LocalDateTime{}),
	schema.TypeTimestamp:     reflect.TypeOf((*timestamppb.Timestamp)(nil)),
}

var collectionGoTypes = map[schema.CollectionKind]reflect.Type{
	schema.CollectionList:      reflect.TypeOf((*arraylist.List)(nil)),
	schema.CollectionSet:       reflect.TypeOf((*hashset.Set)(nil)),
	schema.CollectionSortedSet: reflect.TypeOf((*treeset.Set)(nil)),
	schema.CollectionQueue:     reflect.TypeOf((*linkedlistqueue.Queue)(nil)),
	schema.CollectionDeque:     reflect.TypeOf((*doublylinkedlist.List)(nil)),
}

var sortedMapGoType = reflect.TypeOf((*treemap.Map)(nil))

// checkDescriptor validates t on every call; the walk does not allocate
// for a valid descriptor.
func checkDescriptor(t *schema.Type) error {
	err := schema.Validate(t)
	if err == nil {
		return nil
	}
	if t == nil {
		return NewError(PhaseRaise, KindInvalidDescriptor).Cause(err).Build()
	}
	return NewError(PhaseRaise, KindInvalidDescriptor).Target(t).Cause(err).Build()
}

// GoType returns the Go type Raise produces for t. Nullable scalars and
// opaque values are interface{}.
func GoType(t *schema.Type) reflect.Type {
	key := cacheKey(t)
	if cached, ok := goTypes.Load(key); ok {
		return cached.(reflect.Type)
	}
	actual, _ := goTypes.LoadOrStore(key, goType(t))
	return actual.(reflect.Type)
}

func goType(t *schema.Type) reflect.Type {
	switch t.Kind {
	case schema.KindScalar:
		if t.Nullable {
			return interfaceType
		}
		if rt, ok := scalarGoTypes[t.Scalar]; ok {
			return rt
		}
	case schema.KindArray:
		return reflect.SliceOf(GoType(t.Elem))
	case schema.KindCollection:
		if t.New != nil {
			if v := t.New(); v != nil {
				return reflect.TypeOf(v)
			}
		}
		if rt, ok := collectionGoTypes[t.Collection]; ok {
			return rt
		}
	case schema.KindMap:
		if t.MapKind == schema.MapSorted {
			return sortedMapGoType
		}
		return reflect.MapOf(scalarGoTypes[schema.TypeString], GoType(t.Value))
	}
	return interfaceType
}

// constructor builds an empty container for a collection descriptor together
// with the function that inserts into it.
type constructor func() (container interface{}, add func(interface{}), err error)

func constructorFor(t *schema.Type) constructor {
	key := cacheKey(t)
	if cached, ok := constructors.Load(key); ok {
		return cached.(constructor)
	}

	c := newConstructor(t)
	actual, loaded := constructors.LoadOrStore(key, c)
	if !loaded {
		logging.Logger().Debug("container constructor cached",
			zap.Stringer("type", t),
			zap.Bool("custom", t.New != nil))
	}
	return actual.(constructor)
}

type adder interface {
	Add(values ...interface{})
}

type enqueuer interface {
	Enqueue(value interface{})
}

func newConstructor(t *schema.Type) constructor {
	if t.New != nil {
		return func() (interface{}, func(interface{}), error) {
			return bind(t, t.New())
		}
	}

	switch t.Collection {
	case schema.CollectionList:
		return func() (interface{}, func(interface{}), error) { return bind(t, arraylist.New()) }
	case schema.CollectionSet:
		return func() (interface{}, func(interface{}), error) { return bind(t, hashset.New()) }
	case schema.CollectionSortedSet:
		cmp := comparatorFor(t.Elem)
		return func() (interface{}, func(interface{}), error) { return bind(t, treeset.NewWith(cmp)) }
	case schema.CollectionQueue:
		return func() (interface{}, func(interface{}), error) { return bind(t, linkedlistqueue.New()) }
	case schema.CollectionDeque:
		return func() (interface{}, func(interface{}), error) { return bind(t, doublylinkedlist.New()) }
	}
	return func() (interface{}, func(interface{}), error) {
		return nil, nil, NewError(PhaseRaise, KindInvalidDescriptor).Target(t).
			Detail("unknown collection %q", t.Collection).Build()
	}
}

// bind pairs a container with its insertion method.
func bind(t *schema.Type, c interface{}) (interface{}, func(interface{}), error) {
	switch x := c.(type) {
	case adder:
		return c, func(v interface{}) { x.Add(v) }, nil
	case enqueuer:
		return c, x.Enqueue, nil
	}
	return nil, nil, NewError(PhaseRaise, KindUnsupported).Target(t).
		GoType(fmt.Sprintf("%T", c)).
		Detail("constructor result has no Add or Enqueue method").Build()
}
