package abidecoder

import (
	"math/big"
	"testing"
)

const scraperTestingContract = `[{"inputs":[{"internalType":"uint256","name":"_amount","type":"uint256"},{"internalType":"uint256","name":"_price","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},{"inputs":[],"name":"getInfo","outputs":[{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"newAmount","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"_price","type":"uint256"}],"name":"newPrice","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"string","name":"userData","type":"string"},{"internalType":"bytes","name":"clientData","type":"bytes"}],"name":"submit","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

const submitTrxHex = `0x9e813f1f0000000000000000000000000000000000000000000000000000000000000040000000000000000000000000000000000000000000000000000000000000008000000000000000000000000000000000000000000000000000000000000000187b226964223a3133322c226e616d65223a22416c6578227d000000000000000000000000000000000000000000000000000000000000000000000000000000207b22746178223a3133322c226e756d626572223a22555549442d31323334227d`

func TestParse(t *testing.T) {
	a, err := Parse([]byte(scraperTestingContract))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(a.Functions) != 5 {
		t.Fatalf("expected 5 functions, got %d", len(a.Functions))
	}
	if a.Functions[0].Type != Constructor {
		t.Fatalf("expected first entry to be a constructor")
	}
}

func TestParseUnknownType(t *testing.T) {
	doc := `[{"inputs":[{"name":"x","type":"weirdtype"}],"name":"f","outputs":[],"stateMutability":"nonpayable","type":"function"}]`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected parse failure for unknown type")
	}
}

func TestSelectorForSubmit(t *testing.T) {
	sig := "submit(string,bytes)"
	sel := Selector(sig)
	if sel != "9e813f1f" {
		t.Fatalf("expected selector 9e813f1f, got %s", sel)
	}
}

func TestBuildSelectorTableSkipsConstructor(t *testing.T) {
	a, err := Parse([]byte(scraperTestingContract))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := BuildSelectorTable(a)

	if _, ok := table["9e813f1f"]; !ok {
		t.Fatalf("expected submit selector in table")
	}
	for _, fn := range table {
		if fn.Type == Constructor {
			t.Fatalf("constructor must not contribute a selector entry")
		}
	}
}

func TestDecodeSubmit(t *testing.T) {
	a, err := Parse([]byte(scraperTestingContract))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := BuildSelectorTable(a)

	input, ok := Decode(table, submitTrxHex)
	if !ok {
		t.Fatalf("expected successful decode")
	}
	if input.MethodName != "submit" {
		t.Fatalf("expected method submit, got %s", input.MethodName)
	}

	userData, ok := input.Get("userData")
	if !ok {
		t.Fatalf("expected userData arg")
	}
	userMap, ok := userData.(map[string]interface{})
	if !ok {
		t.Fatalf("expected userData to decode as JSON object, got %T", userData)
	}
	if userMap["name"] != "Alex" {
		t.Fatalf("expected name Alex, got %v", userMap["name"])
	}

	clientData, ok := input.Get("clientData")
	if !ok {
		t.Fatalf("expected clientData arg")
	}
	clientMap, ok := clientData.(map[string]interface{})
	if !ok {
		t.Fatalf("expected clientData to decode as JSON object, got %T", clientData)
	}
	if clientMap["number"] != "UUID-1234" {
		t.Fatalf("expected number UUID-1234, got %v", clientMap["number"])
	}
}

func TestDecodeAddress(t *testing.T) {
	word := "0000000000000000000000007001ea1ca8c28aa90a0d2e8b034aa56319ff0a7e"
	got := decodeAddress(word)
	if got != "7001ea1ca8c28aa90a0d2e8b034aa56319ff0a7e" {
		t.Fatalf("unexpected address: %s", got)
	}
}

func TestDecodeBool(t *testing.T) {
	n, ok := parseWordUint("0000000000000000000000000000000000000000000000000000000000000001")
	if !ok || n.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected true, got %v", n)
	}
	n, ok = parseWordUint("0000000000000000000000000000000000000000000000000000000000000000")
	if !ok || n.Cmp(big.NewInt(1)) == 0 {
		t.Fatalf("expected false, got %v", n)
	}
}

func TestDecodeUnknownSelectorDropsTransaction(t *testing.T) {
	a, err := Parse([]byte(scraperTestingContract))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := BuildSelectorTable(a)

	_, ok := Decode(table, "0xdeadbeef")
	if ok {
		t.Fatalf("expected decode to fail for unknown selector")
	}
}
