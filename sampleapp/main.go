package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anirudhraja/frpc"
	"github.com/anirudhraja/frpc/convert"
	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/sets/treeset"
)

func main() {
	client := frpc.New(frpc.WithProtoDirectories("testdata", ""))

	// user.proto imports post.proto from the same directory
	if err := client.LoadSchema("user.proto"); err != nil {
		log.Fatalf("Failed to load user.proto: %v", err)
	}

	fmt.Println("🚀 FRPC Sample App")
	fmt.Println(strings.Repeat("=", 70))
	for _, method := range client.ListMethods() {
		sig, _ := client.GetRegistry().Lookup(method)
		fmt.Printf("  %s\n", sig)
	}

	demonstrateGetUser(client)
	demonstrateTag(client)
	demonstrateFault(client)
}

func demonstrateGetUser(client *frpc.FRPC) {
	fmt.Println("\n📤 Users.GetUser")

	// the nickname is a StringValue wrapper, so null is accepted
	data, err := client.MarshalCall("Users.GetUser", int64(42), nil)
	if err != nil {
		log.Fatalf("Failed to marshal call: %v", err)
	}
	fmt.Printf("✅ Marshaled %d bytes: %s\n", len(data), hex.EncodeToString(data))

	call, err := client.UnmarshalCall(data)
	if err != nil {
		log.Fatalf("Failed to unmarshal call: %v", err)
	}
	fmt.Printf("📥 %s params: %#v\n", call.Method, call.Params)

	user := map[string]interface{}{
		"id":      int64(42),
		"name":    "John Doe",
		"created": time.Date(2024, 2, 29, 13, 45, 30, 0, time.FixedZone("", 3600)),
		"posts": []map[string]interface{}{
			{"id": int64(1), "title": "Hello FRPC"},
			{"id": int64(2), "title": "Date-times on the wire"},
		},
	}
	resp, err := client.MarshalResponse(user)
	if err != nil {
		log.Fatalf("Failed to marshal response: %v", err)
	}

	result, err := client.UnmarshalResponse(resp, "Users.GetUser")
	if err != nil {
		log.Fatalf("Failed to unmarshal response: %v", err)
	}
	for key, value := range result.(map[string]interface{}) {
		fmt.Printf("  %s: %v\n", key, value)
	}
}

func demonstrateTag(client *frpc.FRPC) {
	fmt.Println("\n📤 Users.Tag")

	// gods containers lower to arrays; the schema raises them back as slices
	tags := treeset.NewWithStringComparator("go", "rpc", "binary", "go")
	scores := map[string]int64{"go": 10, "rpc": 7}

	data, err := client.MarshalCall("Users.Tag", int64(42), tags, scores)
	if err != nil {
		log.Fatalf("Failed to marshal call: %v", err)
	}
	call, err := client.UnmarshalCall(data)
	if err != nil {
		log.Fatalf("Failed to unmarshal call: %v", err)
	}
	fmt.Printf("📥 tags=%v scores=%v\n", call.Params[1], call.Params[2])

	// raising the same array as a sorted set rebuilds the container
	lowered, _ := convert.Lower(tags)
	set, err := convert.Raise(lowered, schema.SortedSetOf(schema.StringType()))
	if err != nil {
		log.Fatalf("Failed to raise tags: %v", err)
	}
	fmt.Printf("🔁 sorted set: %v\n", set.(*treeset.Set).Values())

	// a string where a long is expected reports the full path
	bad, _ := client.MarshalCall("Users.Tag", int64(42), []interface{}{"ok"}, map[string]interface{}{"go": "ten"})
	if _, err := client.UnmarshalCall(bad); err != nil {
		fmt.Printf("❌ %v\n", err)
	}
}

func demonstrateFault(client *frpc.FRPC) {
	fmt.Println("\n📤 Fault")

	data, err := client.MarshalFault(404, "user not found")
	if err != nil {
		log.Fatalf("Failed to marshal fault: %v", err)
	}

	_, err = client.UnmarshalResponse(data, "Users.GetUser")
	var fault *wire.Fault
	if errors.As(err, &fault) {
		fmt.Printf("⚠️  status=%d message=%q\n", fault.Status, fault.Message)
	}
}
