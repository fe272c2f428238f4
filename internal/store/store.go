/*
Copyright 2025 The KCP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package store keeps messaging resources in memory and guards every
// mutation with the ownership rules. Each mutation is announced on an event
// bus as a BEFORE/AFTER pair.
package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/events"
	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/validation"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/uuid"
)

// initialVersion is the first resourceVersion handed out after New or Clear.
const initialVersion = 1

type key struct {
	kind      kind.Kind
	namespace string
	name      string
}

func (k key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.kind, k.namespace, k.name)
}

// Record is a stored resource together with its bookkeeping data.
type Record struct {
	Kind      kind.Kind
	Namespace string
	Name      string
	UID       types.UID
	// Version is the numeric form of the object's resourceVersion.
	Version  int64
	Object   messagingv1.OwnedResource
	StoredAt time.Time
}

func (r *Record) deepCopy() *Record {
	out := *r
	out.Object = r.Object.DeepCopyObject().(messagingv1.OwnedResource)

	return &out
}

// Store is safe for concurrent use. Every successful Create or Update takes
// the next value of a single version counter shared by all kinds and
// namespaces, so resourceVersions are strictly increasing in commit order.
type Store struct {
	log       *zap.SugaredLogger
	bus       *events.Bus
	validator *validation.Validator

	lock        sync.RWMutex
	records     map[key]*Record
	nextVersion atomic.Int64
}

type Option func(*options)

type options struct {
	bus               *events.Bus
	validationOptions []validation.Option
}

// WithEventBus makes the store publish to the given bus instead of creating
// its own.
func WithEventBus(bus *events.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

func WithValidationOptions(opts ...validation.Option) Option {
	return func(o *options) {
		o.validationOptions = append(o.validationOptions, opts...)
	}
}

// New returns an empty store. Unless WithEventBus is given, the store
// creates a bus with audit logging enabled.
func New(log *zap.SugaredLogger, opts ...Option) *Store {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	log = log.Named("store")

	if o.bus == nil {
		o.bus = events.NewBus(log, events.WithAuditLog())
	}

	s := &Store{
		log:     log,
		bus:     o.bus,
		records: map[key]*Record{},
	}

	s.validator = validation.NewValidator(s, o.validationOptions...)
	s.nextVersion.Store(initialVersion)

	return s
}

// Events returns the bus the store publishes its reconciliation events to.
func (s *Store) Events() *events.Bus {
	return s.bus
}

func (s *Store) AddListener(listener events.Listener) events.ListenerHandle {
	return s.bus.AddListener(listener)
}

// Create stores a new resource, assigning it a UID and the next version.
// The passed object is updated in place and returned.
func (s *Store) Create(k kind.Kind, namespace string, obj messagingv1.OwnedResource) (_ messagingv1.OwnedResource, err error) {
	name, owner := identify(obj)
	tx := s.track(events.OperationCreate, k, namespace, name, owner)
	defer func() { tx.finish(recover(), err) }()

	if err := checkKind(k, obj); err != nil {
		return nil, err
	}

	objKey := key{kind: k, namespace: namespace, name: obj.GetName()}

	if s.exists(objKey) {
		return nil, newAlreadyExists(k, objKey.name)
	}

	if k != kind.ApplicationService {
		if result := s.validator.ValidateCreate(obj, namespace); !result.Valid {
			tx.message = result.Message
			return nil, newOwnershipViolation(k, objKey.name, result.Message)
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// a concurrent Create of the same key may have won since the check above
	if _, exists := s.records[objKey]; exists {
		return nil, newAlreadyExists(k, objKey.name)
	}

	version := s.nextVersion.Add(1) - 1

	obj.SetNamespace(namespace)
	obj.SetUID(uuid.NewUUID())
	obj.SetResourceVersion(strconv.FormatInt(version, 10))

	s.records[objKey] = newRecord(objKey, version, obj)

	s.log.Debugw("Created resource", "key", objKey, "version", version)

	tx.version = &version
	tx.message = "Resource created"

	return obj, nil
}

// Update replaces an existing resource. The UID of the stored resource is
// kept, the version is bumped.
func (s *Store) Update(k kind.Kind, namespace, name string, obj messagingv1.OwnedResource) (_ messagingv1.OwnedResource, err error) {
	_, owner := identify(obj)
	tx := s.track(events.OperationUpdate, k, namespace, name, owner)
	defer func() { tx.finish(recover(), err) }()

	if err := checkKind(k, obj); err != nil {
		return nil, err
	}

	if objName := obj.GetName(); objName != "" && objName != name {
		return nil, fmt.Errorf("resource name %q does not match %q", objName, name)
	}

	objKey := key{kind: k, namespace: namespace, name: name}

	s.lock.Lock()
	defer s.lock.Unlock()

	// update checks need no lookups, so they run against the record that is
	// actually replaced
	current, exists := s.records[objKey]
	if !exists {
		return nil, newNotFound(k, name)
	}

	if k != kind.ApplicationService {
		if result := s.validator.ValidateUpdate(current.Object, obj); !result.Valid {
			tx.message = result.Message
			return nil, newOwnershipViolation(k, name, result.Message)
		}
	}

	version := s.nextVersion.Add(1) - 1

	obj.SetName(name)
	obj.SetNamespace(namespace)
	obj.SetUID(current.UID)
	obj.SetResourceVersion(strconv.FormatInt(version, 10))

	s.records[objKey] = newRecord(objKey, version, obj)

	s.log.Debugw("Updated resource", "key", objKey, "version", version)

	tx.version = &version
	tx.message = "Resource updated"

	return obj, nil
}

// Delete removes a resource without checking ownership. It returns false if
// the resource did not exist.
func (s *Store) Delete(k kind.Kind, namespace, name string) (bool, error) {
	return s.delete(k, namespace, name, "", false)
}

// DeleteAs removes a resource on behalf of the given ApplicationService,
// which must own it. ApplicationServices themselves are not checked.
func (s *Store) DeleteAs(k kind.Kind, namespace, name, requestingOwner string) (bool, error) {
	return s.delete(k, namespace, name, requestingOwner, true)
}

func (s *Store) delete(k kind.Kind, namespace, name, requestingOwner string, checkOwner bool) (deleted bool, err error) {
	objKey := key{kind: k, namespace: namespace, name: name}

	existing := s.get(objKey)

	owner := requestingOwner
	if existing != nil {
		owner = existing.Object.ApplicationServiceRef()
	}

	tx := s.track(events.OperationDelete, k, namespace, name, owner)
	defer func() { tx.finish(recover(), err) }()

	if !k.Valid() {
		return false, fmt.Errorf("unknown resource kind %q", k)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// the record may have been replaced since the BEFORE event was built
	current, exists := s.records[objKey]
	if !exists {
		tx.notFound = true
		return false, nil
	}

	if checkOwner && k != kind.ApplicationService {
		if result := s.validator.ValidateDelete(current.Object, requestingOwner); !result.Valid {
			tx.message = result.Message
			return false, newOwnershipViolation(k, name, result.Message)
		}
	}

	delete(s.records, objKey)

	s.log.Debugw("Deleted resource", "key", objKey)

	tx.message = "Resource deleted"

	return true, nil
}

// Get returns a copy of the stored resource or nil if it does not exist.
func (s *Store) Get(k kind.Kind, namespace, name string) messagingv1.OwnedResource {
	record := s.GetRecord(k, namespace, name)
	if record == nil {
		return nil
	}

	return record.Object
}

// GetRecord returns a copy of the stored record or nil if it does not exist.
func (s *Store) GetRecord(k kind.Kind, namespace, name string) *Record {
	record := s.get(key{kind: k, namespace: namespace, name: name})
	if record == nil {
		return nil
	}

	return record.deepCopy()
}

// List returns copies of all resources of a kind in a namespace, sorted by name.
func (s *Store) List(k kind.Kind, namespace string) []messagingv1.OwnedResource {
	s.lock.RLock()
	defer s.lock.RUnlock()

	result := []messagingv1.OwnedResource{}
	for objKey, record := range s.records {
		if objKey.kind == k && objKey.namespace == namespace {
			result = append(result, record.deepCopy().Object)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].GetName() < result[j].GetName()
	})

	return result
}

// Len returns the number of stored resources across all kinds.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.records)
}

// Clear removes all resources and resets the version counter.
func (s *Store) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.records = map[key]*Record{}
	s.nextVersion.Store(initialVersion)
}

func (s *Store) exists(objKey key) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, exists := s.records[objKey]
	return exists
}

// get returns the record itself, callers must not modify it.
func (s *Store) get(objKey key) *Record {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.records[objKey]
}

func newRecord(objKey key, version int64, obj messagingv1.OwnedResource) *Record {
	return &Record{
		Kind:      objKey.kind,
		Namespace: objKey.namespace,
		Name:      objKey.name,
		UID:       obj.GetUID(),
		Version:   version,
		Object:    obj.DeepCopyObject().(messagingv1.OwnedResource),
		StoredAt:  time.Now(),
	}
}

// identify returns name and owner of obj, or empty strings for nil objects.
func identify(obj messagingv1.OwnedResource) (name, owner string) {
	if isNil(obj) {
		return "", ""
	}

	return obj.GetName(), obj.ApplicationServiceRef()
}

func isNil(obj messagingv1.OwnedResource) bool {
	if obj == nil {
		return true
	}

	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func checkKind(k kind.Kind, obj messagingv1.OwnedResource) error {
	if isNil(obj) {
		return errors.New("cannot store a nil resource")
	}

	actual, err := kind.Of(obj)
	if err != nil {
		return err
	}

	if actual != k {
		return fmt.Errorf("cannot store %s as %s", actual, k)
	}

	return nil
}
