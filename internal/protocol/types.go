package protocol

// PacketType is the wire-stable opcode byte shared with clients. Order is
// significant only in that both sides must agree on it; there is no
// requirement that it match any particular historical numbering.
type PacketType uint8

const (
	PacketUnknown PacketType = iota

	// Identity / lifecycle
	Identity
	ServerIdentityResponse
	ServerPlayerForceDisconnect
	ServerPlayerLeft

	// Lobby
	ServerGameBackToLobby
	ServerLobbyExeChance
	ServerHeartbeat
	ServerLobbyCountdown
	ClientLobbyPlayersRequest
	ServerLobbyPlayer
	ServerLobbyCorrect
	ClientChatMessage
	ClientLobbyReadyState

	// MapVote
	ServerVoteMaps
	ServerVoteTimeSync
	ClientVoteRequest
	ServerVoteSet

	// CharacterSelect
	ServerLobbyExe
	ClientRequestCharacter
	ServerLobbyCharacterResponse
	ServerLobbyCharacterChange
	ClientRequestExeCharacter

	// Game clock / lifecycle
	ServerLobbyGameStart
	ServerGamePlayersReady
	ServerGameDeathtimerTick
	ServerGameDeathtimerEnd
	ServerGameSpawnRing
	ServerGameTimeSync
	ServerGameTimeOver
	ServerGameExeWins
	ServerGameSurvivorWin
	ServerGamePlayerEscaped

	// Gameplay actions
	ClientTProjectile
	ClientTProjectileHit
	ClientEtracker
	ClientEtrackerActivated
	ClientCreamSpawnRings
	ClientRingCollected
	ServerRingCollected
	ClientErectorBRingSpawn
	ServerErectorBRingSpawn
	ClientBRingCollected
	ServerBRingCollected
	ClientExellerSpawnClone
	ClientExellerTeleportClone
	ClientPlayerDeathState
	ServerPlayerDeathState
	ServerRevivalStatus
	ClientPlayerEscaped
	ClientRevivalProgress
	ServerRevivalRingSub
	ServerRevivalRevived
	ServerRevivalProgress
	ClientPlayerData
	ServerPlayerData
	ClientPing
	ServerPong
	ServerGamePing

	// Entity state opcodes (sub-op byte disambiguates spawn/tick/destroy)
	ServerRingState
	ServerBRingState
	ServerTProjectileState
	ServerEtrackerState
	ServerExellerCloneState
	ServerRmzSlimeState
	ServerRmzSlimeRingBonus
	ClientRmzSlimeHit
)

// BuildVersion is the negotiated protocol build; IDENTITY rejects any
// mismatch.
const BuildVersion uint16 = 101
