package main

import (
	"net/rpc"
	"reflect"
	"sync"
	"unsafe"
)

// listRegisteredMethods walks net/rpc's unexported service map via
// reflection to report exactly what has been registered, the way
// db/helpers.go's ListRegisteredMethods does in the teacher repo.
func listRegisteredMethods(server *rpc.Server) []string {
	var methods []string

	srvVal := reflect.ValueOf(server).Elem()

	smField := srvVal.FieldByName("serviceMap")
	sm := reflect.NewAt(smField.Type(), unsafe.Pointer(smField.UnsafeAddr())).
		Elem().Interface().(sync.Map)

	sm.Range(func(svcName, svcIface interface{}) bool {
		name := svcName.(string)
		svcVal := reflect.ValueOf(svcIface).Elem()

		mField := svcVal.FieldByName("method")
		mVal := reflect.NewAt(mField.Type(), unsafe.Pointer(mField.UnsafeAddr())).Elem()

		for _, key := range mVal.MapKeys() {
			methods = append(methods, name+"."+key.String())
		}
		return true
	})

	return methods
}
