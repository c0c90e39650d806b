package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anirudhraja/frpc/logging"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
	"go.uber.org/zap"
)

// ErrDuplicateMethod is returned when a method name is registered twice.
var ErrDuplicateMethod = errors.New("method already registered")

// Registry maps method names to their signatures. We look this up when we
// need to raise the parameters of a call or the result of a response.
type Registry struct {
	ProtoDirectories []string

	mu      sync.RWMutex
	methods map[string]*Signature

	// proto loading state, guarded by mu
	parsedProtoBody map[string]*protoparserparser.Proto // file path -> parsed body
	protoEntities   map[string]*protoFileEntity         // file path -> package and imports
	services        map[string]struct{}                 // fully qualified services already registered
}

// NewRegistry creates an empty registry. protoDirs are searched, in order,
// when resolving .proto paths and their imports.
func NewRegistry(protoDirs []string) *Registry {
	if len(protoDirs) == 0 {
		protoDirs = []string{""}
	}
	return &Registry{
		ProtoDirectories: protoDirs,
		methods:          make(map[string]*Signature),
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		protoEntities:    make(map[string]*protoFileEntity),
		services:         make(map[string]struct{}),
	}
}

// Register adds a signature. Registering a method name twice is an error.
func (r *Registry) Register(sig *Signature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(sig)
}

func (r *Registry) register(sig *Signature) error {
	if sig == nil {
		return errors.New("nil signature")
	}
	if _, exists := r.methods[sig.Method]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, sig.Method)
	}
	r.methods[sig.Method] = sig
	logging.Logger().Debug("method registered", zap.Stringer("signature", sig))
	return nil
}

// Lookup retrieves the signature of a method.
func (r *Registry) Lookup(method string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.methods[method]
	return sig, ok
}

// ListMethods returns all registered method names in sorted order.
func (r *Registry) ListMethods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSchema parses a .proto file, or every .proto file below a directory,
// together with their imports, and registers one method per service rpc.
func (r *Registry) LoadSchema(protoPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(protoPath)
	if err == nil && info.IsDir() {
		var files []string
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
		for _, file := range files {
			if err := r.loadSingleProtoFile(file); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", file, err)
			}
		}
		return nil
	}

	if err := r.loadSingleProtoFile(protoPath); err != nil {
		return fmt.Errorf("failed to load proto file: %w", err)
	}
	return nil
}

// loadSingleProtoFile parses a file and its imports and registers the
// services they declare.
func (r *Registry) loadSingleProtoFile(protoPath string) error {
	files, err := r.getAllProtoInfo(protoPath)
	if err != nil {
		return err
	}

	symbols := r.buildSymbolTable()
	before := len(r.methods)
	for _, file := range files {
		if err := r.buildServices(file, symbols); err != nil {
			return err
		}
	}

	logging.Logger().Info("schema loaded",
		zap.String("path", protoPath),
		zap.Int("files", len(files)),
		zap.Int("methods", len(r.methods)-before))
	return nil
}
