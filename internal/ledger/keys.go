package ledger

import "encoding/binary"

// Key families. Spec §6's persisted-state layout is "a single key-value
// namespace with typed key families" — each function below builds one
// family's key deterministically from its component IDs, never by dynamic
// reflection, per spec §9's "Storage polymorphism" note.
const (
	famAdmin byte = iota
	famBaseFee
	famCircuitBreakerState
	famGuardianSet
	famRecovery
	famMarketCount
	famMarket
	famBet
	famVote
	famVoteTally
	famPool
	famUserShares
	famFeeRevenue
	famReferralReward
	famOracleResult
	famOracleLastUpdate
	famIdentityContract
	famProtocolLock
	famMarketAdmin
	famFeeAdmin
	famGuardianAccount
	famMarketMode
)

func u64b(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func u32b(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func key1(fam byte) []byte { return []byte{fam} }

func key2(fam byte, a []byte) []byte {
	k := make([]byte, 0, 1+len(a))
	k = append(k, fam)
	return append(k, a...)
}

func key3(fam byte, a, b []byte) []byte {
	k := make([]byte, 0, 1+len(a)+len(b))
	k = append(k, fam)
	k = append(k, a...)
	return append(k, b...)
}

func keyN(fam byte, parts ...[]byte) []byte {
	k := []byte{fam}
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func KeyAdmin() []byte                           { return key1(famAdmin) }
func KeyMarketAdmin() []byte                      { return key1(famMarketAdmin) }
func KeyFeeAdmin() []byte                         { return key1(famFeeAdmin) }
func KeyGuardianAccount() []byte                  { return key1(famGuardianAccount) }
func KeyBaseFee() []byte                          { return key1(famBaseFee) }
func KeyCircuitBreakerState() []byte              { return key1(famCircuitBreakerState) }
func KeyGuardianSet() []byte                      { return key1(famGuardianSet) }
func KeyRecovery() []byte                         { return key1(famRecovery) }
func KeyMarketCount() []byte                      { return key1(famMarketCount) }
func KeyIdentityContract() []byte                 { return key1(famIdentityContract) }
func KeyProtocolLock() []byte                     { return key1(famProtocolLock) }
func KeyMarket(id uint64) []byte                  { return key2(famMarket, u64b(id)) }
func KeyMarketMode(id uint64) []byte              { return key2(famMarketMode, u64b(id)) }
func KeyBet(id uint64, bettor string) []byte      { return key3(famBet, u64b(id), []byte(bettor)) }
func KeyVote(id uint64, voter string) []byte      { return key3(famVote, u64b(id), []byte(voter)) }
func KeyVoteTally(id uint64, outcome uint32) []byte {
	return key3(famVoteTally, u64b(id), u32b(outcome))
}
func KeyPool(id uint64, outcome uint32) []byte {
	return key3(famPool, u64b(id), u32b(outcome))
}
func KeyUserShares(id uint64, user string, outcome uint32) []byte {
	return keyN(famUserShares, u64b(id), []byte(user), u32b(outcome))
}
func KeyFeeRevenue(token string) []byte           { return key2(famFeeRevenue, []byte(token)) }
func KeyReferralReward(addr, token string) []byte { return key3(famReferralReward, []byte(addr), []byte(token)) }
func KeyOracleResult(id uint64) []byte            { return key2(famOracleResult, u64b(id)) }
func KeyOracleLastUpdate(id uint64) []byte        { return key2(famOracleLastUpdate, u64b(id)) }

// BetPrefix returns the key prefix shared by every bet belonging to id, for
// iteration (used by resolution payout scans and GC).
func BetPrefix(id uint64) []byte { return key2(famBet, u64b(id)) }

// VoteTallyPrefix returns the shared prefix for every outcome tally of id.
func VoteTallyPrefix(id uint64) []byte { return key2(famVoteTally, u64b(id)) }

// CancelOutcomeSentinel is u32::MAX, the sentinel vote-tally outcome that
// accumulates cancel-votes.
const CancelOutcomeSentinel uint32 = 0xFFFFFFFF
