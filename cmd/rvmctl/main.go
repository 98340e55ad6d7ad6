// Command rvmctl is a manual exerciser for rvmd, following the spec's
// API one command at a time: map a segment, begin a transaction, declare
// and write a range, commit or abort, or checkpoint the whole directory.
//
// It is not part of the specified RVM core (spec.md §1 treats any CLI
// driver as an external collaborator); it exists the way the teacher
// repo's cmd/client exists alongside cmd/server, for manual testing.
package main

import (
	"fmt"
	"net/rpc"
	"os"
	"strconv"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  rvmctl map <name> <size>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl unmap <handle>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl begin <handle> [<handle>...]\n")
	fmt.Fprintf(os.Stderr, "  rvmctl modify <tid> <handle> <offset> <value>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl read <handle> <offset> <length>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl commit <tid>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl abort <tid>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl truncate\n")
	os.Exit(1)
}

func dial() *rpc.Client {
	client, err := rpc.Dial("tcp", "localhost:1730")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to dial rvmd: %v\n", err)
		os.Exit(1)
	}
	return client
}

// rvmctl intentionally mirrors the teacher's cmd/client: no subcommand
// framework, just os.Args dispatch and one RPC call per invocation.
func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "map":
		if len(os.Args) != 4 {
			usage()
		}
		name := os.Args[2]
		size, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad size: %v\n", err)
			os.Exit(1)
		}

		client := dial()
		var handle int
		if err := client.Call("RVM.Map", &struct {
			Name string
			Size int64
		}{name, size}, &handle); err != nil {
			fmt.Fprintf(os.Stderr, "map failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(handle)

	case "unmap":
		if len(os.Args) != 3 {
			usage()
		}
		handle := atoi(os.Args[2])

		client := dial()
		var reply struct{}
		if err := client.Call("RVM.Unmap", handle, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "unmap failed: %v\n", err)
			os.Exit(1)
		}

	case "begin":
		if len(os.Args) < 3 {
			usage()
		}
		handles := make([]int, len(os.Args)-2)
		for i, s := range os.Args[2:] {
			handles[i] = atoi(s)
		}

		client := dial()
		var tid int64
		if err := client.Call("RVM.BeginTrans", &struct{ Handles []int }{handles}, &tid); err != nil {
			fmt.Fprintf(os.Stderr, "begin failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(tid)

	case "modify":
		if len(os.Args) != 6 {
			usage()
		}
		tid := atoi64(os.Args[2])
		handle := atoi(os.Args[3])
		offset := atoi64(os.Args[4])
		value := os.Args[5]

		client := dial()
		var reply struct{}
		if err := client.Call("RVM.AboutToModify", &struct {
			TxID   int64
			Handle int
			Offset int64
			Size   int64
		}{tid, handle, offset, int64(len(value))}, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "about_to_modify failed: %v\n", err)
			os.Exit(1)
		}

		if err := client.Call("RVM.WriteAt", &struct {
			Handle int
			Offset int64
			Data   []byte
		}{handle, offset, []byte(value)}, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			os.Exit(1)
		}

	case "read":
		if len(os.Args) != 5 {
			usage()
		}
		handle := atoi(os.Args[2])
		offset := atoi64(os.Args[3])
		length := atoi64(os.Args[4])

		client := dial()
		var data []byte
		if err := client.Call("RVM.ReadAt", &struct {
			Handle int
			Offset int64
			Length int64
		}{handle, offset, length}, &data); err != nil {
			fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%q\n", data)

	case "commit":
		if len(os.Args) != 3 {
			usage()
		}
		tid := atoi64(os.Args[2])

		client := dial()
		var reply struct{}
		if err := client.Call("RVM.CommitTrans", tid, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
			os.Exit(1)
		}

	case "abort":
		if len(os.Args) != 3 {
			usage()
		}
		tid := atoi64(os.Args[2])

		client := dial()
		var reply struct{}
		if err := client.Call("RVM.AbortTrans", tid, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "abort failed: %v\n", err)
			os.Exit(1)
		}

	case "truncate":
		client := dial()
		var reply struct{}
		if err := client.Call("RVM.TruncateLog", struct{}{}, &reply); err != nil {
			fmt.Fprintf(os.Stderr, "truncate failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", os.Args[1])
		usage()
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad integer %q: %v\n", s, err)
		os.Exit(1)
	}
	return n
}

func atoi64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad integer %q: %v\n", s, err)
		os.Exit(1)
	}
	return n
}
