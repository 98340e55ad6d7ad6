package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"

	"github.com/epokhe/rvm/rvm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  rvmd -path <backing-dir>\n")
	os.Exit(1)
}

func main() {
	var (
		dir         = flag.String("path", "", "path to the RVM backing directory")
		addr        = flag.String("addr", ":1730", "RPC listen address")
		listMethods = flag.Bool("list-methods", false, "log registered RPC methods on startup")
	)
	flag.Parse()

	if *dir == "" {
		usage()
	}

	rv, err := rvm.Init(*dir)
	if err != nil {
		log.Fatalf("could not init rvm at %q: %v", *dir, err)
	}

	server := rpc.NewServer()
	if err := server.RegisterName("RVM", newService(rv)); err != nil {
		log.Fatalf("could not register RVM service: %v", err)
	}

	if *listMethods {
		for _, m := range listRegisteredMethods(server) {
			log.Printf("registered method: %s", m)
		}
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("could not listen on %q: %v", *addr, err)
	}
	log.Printf("rvmd listening on %s, backing dir %q", listener.Addr(), *dir)

	go server.Accept(listener)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received %v, shutting down", sig)

	_ = listener.Close()
}
