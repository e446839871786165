package ledger

import "github.com/DoyleJ11/spelling-bee-backend/internal/store"

const wordListsRoot = "wordlists"

func tournamentRoot(tid string) string { return store.Join("tournaments", tid) }

func ParticipantsPath(tid string) string { return store.Join(tournamentRoot(tid), "participants") }

func ParticipantPath(tid, pid string) string { return store.Join(ParticipantsPath(tid), pid) }

func WinnersPath(tid string) string { return store.Join(tournamentRoot(tid), "winners") }

func ActionPath(tid string) string { return store.Join(tournamentRoot(tid), "action") }

func TemplatesPath(tid string) string { return store.Join(tournamentRoot(tid), "templates") }

func WordListsPath() string { return wordListsRoot }

func WordListPath(lid string) string { return store.Join(wordListsRoot, lid) }
