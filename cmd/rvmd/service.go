// Package main implements rvmd, a single-process host driver that wraps
// one RVM instance behind a net/rpc facade for manual exercising and
// demonstration — not a multi-process coordination mechanism (spec.md §1,
// §9; see DESIGN.md).
package main

import (
	"fmt"
	"sync"

	"github.com/epokhe/rvm/rvm"
)

// Service adapts *rvm.RVM to net/rpc. Raw base addresses cannot cross a
// process boundary, so Service hands remote callers an opaque int handle
// in place of the []byte Map would otherwise return, and offers ReadAt/
// WriteAt in place of direct memory access.
type Service struct {
	rv *rvm.RVM

	mu      sync.Mutex
	nextID  int
	handles map[int][]byte
}

func newService(rv *rvm.RVM) *Service {
	return &Service{rv: rv, handles: make(map[int][]byte)}
}

func (s *Service) resolve(handle int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.handles[handle]
	if !ok {
		return nil, fmt.Errorf("rvmd: unknown handle %d", handle)
	}
	return base, nil
}

type MapArgs struct {
	Name string
	Size int64
}

func (s *Service) Map(args *MapArgs, reply *int) error {
	base, err := s.rv.Map(args.Name, args.Size)
	if err != nil {
		return err
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handles[id] = base
	s.mu.Unlock()

	*reply = id
	return nil
}

func (s *Service) Unmap(handle int, _ *struct{}) error {
	base, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if err := s.rv.Unmap(base); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.handles, handle)
	s.mu.Unlock()
	return nil
}

type DestroyArgs struct {
	Name string
}

func (s *Service) Destroy(args *DestroyArgs, _ *struct{}) error {
	return s.rv.Destroy(args.Name)
}

type BeginTransArgs struct {
	Handles []int
}

func (s *Service) BeginTrans(args *BeginTransArgs, reply *int64) error {
	bases := make([][]byte, len(args.Handles))
	for i, h := range args.Handles {
		base, err := s.resolve(h)
		if err != nil {
			return err
		}
		bases[i] = base
	}

	tid, err := s.rv.BeginTrans(bases)
	*reply = int64(tid)
	return err
}

type AboutToModifyArgs struct {
	TxID   int64
	Handle int
	Offset int64
	Size   int64
}

func (s *Service) AboutToModify(args *AboutToModifyArgs, _ *struct{}) error {
	base, err := s.resolve(args.Handle)
	if err != nil {
		return err
	}
	return s.rv.AboutToModify(rvm.TxID(args.TxID), base, args.Offset, args.Size)
}

type WriteAtArgs struct {
	Handle int
	Offset int64
	Data   []byte
}

func (s *Service) WriteAt(args *WriteAtArgs, _ *struct{}) error {
	base, err := s.resolve(args.Handle)
	if err != nil {
		return err
	}
	copy(base[args.Offset:args.Offset+int64(len(args.Data))], args.Data)
	return nil
}

type ReadAtArgs struct {
	Handle int
	Offset int64
	Length int64
}

func (s *Service) ReadAt(args *ReadAtArgs, reply *[]byte) error {
	base, err := s.resolve(args.Handle)
	if err != nil {
		return err
	}
	*reply = append([]byte(nil), base[args.Offset:args.Offset+args.Length]...)
	return nil
}

func (s *Service) CommitTrans(tid int64, _ *struct{}) error {
	return s.rv.CommitTrans(rvm.TxID(tid))
}

func (s *Service) AbortTrans(tid int64, _ *struct{}) error {
	return s.rv.AbortTrans(rvm.TxID(tid))
}

func (s *Service) TruncateLog(_ struct{}, _ *struct{}) error {
	return s.rv.TruncateLog()
}
