/*
Package iso7816 implements data structures and logic to interact with smart cards according to the ISO/IEC 7816 standard.

It provides the APDU building blocks (Command and Response structures, Status
Word analysis, CLA and INS decoding), a transport Client, and helpers around
the VERIFY command used for PIN based user verification.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW). For VERIFY:
  - 0x9000: PIN verified.
  - 0x63CX: Verification failed or counter query, X retries left.
  - 0x6983: Reference blocked.
  - 0x6986 / 0x6A80 / 0x6A87: The command itself was rejected.

# Usage Example: Verifying a PIN

	client := iso7816.NewClient(card) // card implements Transmitter
	cls, _ := iso7816.NewClass(0x00)

	trace, err := client.Send(iso7816.NewVerifyCommand(cls, iso7816.VerifyQualifierPIN1, pin))
	if err != nil {
	    log.Fatal(err)
	}

	result, _ := iso7816.NewVerifyResult(trace)
	if n, ok := result.RetriesLeft(); ok {
	    fmt.Printf("Wrong PIN, %d attempts left\n", n)
	}
	fmt.Println(result.Describe())
*/
package iso7816
