package cfhd

// Fixed coding tables. They are shared by every Encoder and Decoder and are
// never written after package initialization.

// magnitudeCodebook holds the (length, code) of each companded magnitude
// 0..255, without the trailing sign bit that follows every nonzero magnitude.
var magnitudeCodebook = [256][2]uint32{
	{1, 0x00000000}, {2, 0x00000002}, {3, 0x00000007}, {5, 0x00000019}, {6, 0x00000030},
	{6, 0x00000036}, {7, 0x00000063}, {7, 0x0000006B}, {7, 0x0000006F}, {8, 0x000000D4},
	{8, 0x000000DC}, {9, 0x00000189}, {9, 0x000001A0}, {9, 0x000001AB}, {10, 0x00000310},
	{10, 0x00000316}, {10, 0x00000354}, {10, 0x00000375}, {10, 0x00000377}, {11, 0x00000623},
	{11, 0x00000684}, {11, 0x000006AB}, {11, 0x000006EC}, {12, 0x00000C44}, {12, 0x00000C5C},
	{12, 0x00000C5E}, {12, 0x00000D55}, {12, 0x00000DD1}, {12, 0x00000DD3}, {12, 0x00000DDB},
	{13, 0x0000188B}, {13, 0x000018BB}, {13, 0x00001AA8}, {13, 0x00001BA0}, {13, 0x00001BA4},
	{13, 0x00001BB5}, {14, 0x00003115}, {14, 0x00003175}, {14, 0x0000317D}, {14, 0x00003553},
	{14, 0x00003768}, {15, 0x00006228}, {15, 0x000062E8}, {15, 0x000062F8}, {15, 0x00006AA4},
	{15, 0x00006E85}, {15, 0x00006E87}, {15, 0x00006ED3}, {16, 0x0000C453}, {16, 0x0000C5D3},
	{16, 0x0000C5F3}, {16, 0x0000DD08}, {16, 0x0000DD0C}, {16, 0x0000DDA4}, {17, 0x000188A4},
	{17, 0x00018BA5}, {17, 0x00018BE5}, {17, 0x0001AA95}, {17, 0x0001AA97}, {17, 0x0001BA13},
	{17, 0x0001BB4A}, {17, 0x0001BB4B}, {18, 0x00031748}, {18, 0x000317C8}, {18, 0x00035528},
	{18, 0x0003552C}, {18, 0x00037424}, {18, 0x00037434}, {18, 0x00037436}, {19, 0x00062294},
	{19, 0x00062E92}, {19, 0x00062F92}, {19, 0x0006AA52}, {19, 0x0006AA5A}, {19, 0x0006E84A},
	{19, 0x0006E86A}, {19, 0x0006E86E}, {20, 0x000C452A}, {20, 0x000C5D27}, {20, 0x000C5F26},
	{20, 0x000D54A6}, {20, 0x000D54B6}, {20, 0x000DD096}, {20, 0x000DD0D6}, {20, 0x000DD0DE},
	{21, 0x00188A56}, {21, 0x0018BA4D}, {21, 0x0018BE4E}, {21, 0x0018BE4F}, {21, 0x001AA96E},
	{21, 0x001BA12E}, {21, 0x001BA12F}, {21, 0x001BA1AF}, {21, 0x001BA1BF}, {22, 0x00317498},
	{22, 0x0035529C}, {22, 0x0035529D}, {22, 0x003552DE}, {22, 0x003552DF}, {22, 0x0037435D},
	{22, 0x0037437D}, {23, 0x0062295D}, {23, 0x0062E933}, {23, 0x006AA53D}, {23, 0x006AA53E},
	{23, 0x006AA53F}, {23, 0x006E86B9}, {23, 0x006E86F8}, {24, 0x00C452B8}, {24, 0x00C5D265},
	{24, 0x00D54A78}, {24, 0x00D54A79}, {24, 0x00DD0D70}, {24, 0x00DD0D71}, {24, 0x00DD0DF2},
	{24, 0x00DD0DF3}, {26, 0x03114BA2}, {25, 0x0188A5B1}, {25, 0x0188A58B}, {25, 0x0188A595},
	{25, 0x0188A5D6}, {25, 0x0188A5D7}, {25, 0x0188A5A8}, {25, 0x0188A5AE}, {25, 0x0188A5AF},
	{25, 0x0188A5C4}, {25, 0x0188A5C5}, {25, 0x0188A587}, {25, 0x0188A584}, {25, 0x0188A585},
	{25, 0x0188A5C6}, {25, 0x0188A5C7}, {25, 0x0188A5CC}, {25, 0x0188A5CD}, {25, 0x0188A581},
	{25, 0x0188A582}, {25, 0x0188A583}, {25, 0x0188A5CE}, {25, 0x0188A5CF}, {25, 0x0188A5C2},
	{25, 0x0188A5C3}, {25, 0x0188A5C1}, {25, 0x0188A5B4}, {25, 0x0188A5B5}, {25, 0x0188A5E6},
	{25, 0x0188A5E7}, {25, 0x0188A5E4}, {25, 0x0188A5E5}, {25, 0x0188A5AB}, {25, 0x0188A5E0},
	{25, 0x0188A5E1}, {25, 0x0188A5E2}, {25, 0x0188A5E3}, {25, 0x0188A5B6}, {25, 0x0188A5B7},
	{25, 0x0188A5FD}, {25, 0x0188A57E}, {25, 0x0188A57F}, {25, 0x0188A5EC}, {25, 0x0188A5ED},
	{25, 0x0188A5FE}, {25, 0x0188A5FF}, {25, 0x0188A57D}, {25, 0x0188A59C}, {25, 0x0188A59D},
	{25, 0x0188A5E8}, {25, 0x0188A5E9}, {25, 0x0188A5EA}, {25, 0x0188A5EB}, {25, 0x0188A5EF},
	{25, 0x0188A57A}, {25, 0x0188A57B}, {25, 0x0188A578}, {25, 0x0188A579}, {25, 0x0188A5BA},
	{25, 0x0188A5BB}, {25, 0x0188A5B8}, {25, 0x0188A5B9}, {25, 0x0188A588}, {25, 0x0188A589},
	{25, 0x018BA4C8}, {25, 0x018BA4C9}, {25, 0x0188A5FA}, {25, 0x0188A5FB}, {25, 0x0188A5BC},
	{25, 0x0188A5BD}, {25, 0x0188A598}, {25, 0x0188A599}, {25, 0x0188A5F4}, {25, 0x0188A5F5},
	{25, 0x0188A59B}, {25, 0x0188A5DE}, {25, 0x0188A5DF}, {25, 0x0188A596}, {25, 0x0188A597},
	{25, 0x0188A5F8}, {25, 0x0188A5F9}, {25, 0x0188A5F1}, {25, 0x0188A58E}, {25, 0x0188A58F},
	{25, 0x0188A5DC}, {25, 0x0188A5DD}, {25, 0x0188A5F2}, {25, 0x0188A5F3}, {25, 0x0188A58C},
	{25, 0x0188A58D}, {25, 0x0188A5A4}, {25, 0x0188A5F0}, {25, 0x0188A5A5}, {25, 0x0188A5A6},
	{25, 0x0188A5A7}, {25, 0x0188A59A}, {25, 0x0188A5A2}, {25, 0x0188A5A3}, {25, 0x0188A58A},
	{25, 0x0188A5B0}, {25, 0x0188A5A0}, {25, 0x0188A5A1}, {25, 0x0188A5DA}, {25, 0x0188A5DB},
	{25, 0x0188A59E}, {25, 0x0188A59F}, {25, 0x0188A5D8}, {25, 0x0188A5EE}, {25, 0x0188A5D9},
	{25, 0x0188A5F6}, {25, 0x0188A5F7}, {25, 0x0188A57C}, {25, 0x0188A5C8}, {25, 0x0188A5C9},
	{25, 0x0188A594}, {25, 0x0188A5FC}, {25, 0x0188A5CA}, {25, 0x0188A5CB}, {25, 0x0188A5B2},
	{25, 0x0188A5AA}, {25, 0x0188A5B3}, {25, 0x0188A572}, {25, 0x0188A573}, {25, 0x0188A5C0},
	{25, 0x0188A5BE}, {25, 0x0188A5BF}, {25, 0x0188A592}, {25, 0x0188A580}, {25, 0x0188A593},
	{25, 0x0188A590}, {25, 0x0188A591}, {25, 0x0188A586}, {25, 0x0188A5A9}, {25, 0x0188A5D2},
	{25, 0x0188A5D3}, {25, 0x0188A5D4}, {25, 0x0188A5D5}, {25, 0x0188A5AC}, {25, 0x0188A5AD},
	{25, 0x0188A5D0},
}

// runBook lists (length, code, run) for runs of zero coefficients. Runs of
// up to 11 are coded as repeated one-bit zero magnitudes; longer runs use
// geometric buckets, the largest covering 320 coefficients.
var runBook = [18][3]uint16{
	{1, 0x0000, 1}, {2, 0x0000, 2}, {3, 0x0000, 3}, {4, 0x0000, 4},
	{5, 0x0000, 5}, {6, 0x0000, 6}, {7, 0x0000, 7}, {8, 0x0000, 8},
	{9, 0x0000, 9}, {10, 0x0000, 10}, {11, 0x0000, 11},
	{7, 0x0069, 12}, {8, 0x00D1, 20}, {9, 0x018A, 32},
	{10, 0x0343, 60}, {11, 0x0685, 100}, {13, 0x18BF, 180}, {13, 0x1BA5, 320},
}

const (
	// maxRun is the largest run a single run codeword covers.
	maxRun = 320

	// escapeCode terminates the coefficients of a band.
	escapeCode    = 0x3114ba3
	escapeCodeLen = 26

	// numRunBookShort is the number of runBook entries that are plain
	// repetitions of the one-bit zero magnitude.
	numRunBookShort = 11
)

// quantPerSubband is indexed by [RGB?][channel][quality][level*3+band],
// level 0 being the coarsest.
var quantPerSubband = [2][3][13][9]uint16{
	{
		{
			{16, 16, 8, 4, 4, 2, 6, 6, 9}, // film3+
			{16, 16, 8, 4, 4, 2, 6, 6, 9}, // film3
			{16, 16, 8, 4, 4, 2, 7, 7, 10}, // film2+
			{16, 16, 8, 4, 4, 2, 8, 8, 12}, // film2
			{16, 16, 8, 4, 4, 2, 16, 16, 26}, // film1.5
			{24, 24, 12, 6, 6, 3, 24, 24, 36}, // film1+
			{24, 24, 12, 6, 6, 3, 24, 24, 36}, // film1
			{32, 32, 24, 8, 8, 6, 32, 32, 48}, // high+
			{32, 32, 24, 8, 8, 6, 32, 32, 48}, // high
			{48, 48, 32, 12, 12, 8, 64, 64, 96}, // medium+
			{48, 48, 32, 12, 12, 8, 64, 64, 96}, // medium
			{64, 64, 48, 16, 16, 12, 96, 96, 144}, // low+
			{64, 64, 48, 16, 16, 12, 128, 128, 192}, // low
		},
		{
			{16, 16, 8, 4, 4, 2, 6, 6, 9}, // film3+
			{16, 16, 8, 4, 4, 2, 6, 6, 12}, // film3
			{16, 16, 8, 4, 4, 2, 7, 7, 14}, // film2+
			{16, 16, 8, 4, 4, 2, 8, 8, 16}, // film2
			{16, 16, 8, 4, 4, 2, 16, 16, 26}, // film1.5
			{24, 24, 12, 6, 6, 3, 24, 24, 36}, // film1+
			{24, 24, 12, 6, 6, 3, 24, 24, 48}, // film1
			{32, 32, 24, 8, 8, 6, 32, 32, 48}, // high+
			{48, 48, 32, 12, 12, 8, 32, 32, 64}, // high
			{48, 48, 32, 12, 12, 8, 64, 64, 96}, // medium+
			{48, 48, 32, 12, 12, 8, 64, 64, 128}, // medium
			{64, 64, 48, 16, 16, 12, 96, 96, 160}, // low+
			{64, 64, 48, 16, 16, 12, 128, 128, 192}, // low
		},
		{
			{16, 16, 8, 4, 4, 2, 6, 6, 9}, // film3+
			{16, 16, 8, 4, 4, 2, 6, 6, 12}, // film3
			{16, 16, 8, 4, 4, 2, 7, 7, 14}, // film2+
			{16, 16, 8, 4, 4, 2, 8, 8, 16}, // film2
			{16, 16, 8, 4, 4, 2, 16, 16, 26}, // film1.5
			{24, 24, 12, 6, 6, 3, 24, 24, 36}, // film1+
			{24, 24, 12, 6, 6, 3, 24, 24, 48}, // film1
			{32, 32, 24, 8, 8, 6, 32, 32, 48}, // high+
			{48, 48, 32, 12, 12, 8, 32, 32, 64}, // high
			{48, 48, 32, 12, 12, 8, 64, 64, 96}, // medium+
			{48, 48, 32, 12, 12, 8, 64, 64, 128}, // medium
			{64, 64, 48, 16, 16, 12, 96, 96, 160}, // low+
			{64, 64, 48, 16, 16, 12, 128, 128, 192}, // low
		},
	},
	{
		{
			{16, 16, 8, 16, 16, 8, 24, 24, 36}, // film3+
			{16, 16, 8, 16, 16, 8, 24, 24, 36}, // film3
			{16, 16, 8, 16, 16, 8, 32, 32, 48}, // film2+
			{16, 16, 8, 16, 16, 8, 32, 32, 48}, // film2
			{16, 16, 8, 20, 20, 10, 80, 80, 128}, // film1.5
			{24, 24, 12, 24, 24, 12, 96, 96, 144}, // film1+
			{24, 24, 12, 24, 24, 12, 96, 96, 144}, // film1
			{32, 32, 24, 32, 32, 24, 128, 128, 192}, // high+
			{32, 32, 24, 32, 32, 24, 128, 128, 192}, // high
			{48, 48, 32, 48, 48, 32, 256, 256, 384}, // medium+
			{48, 48, 32, 48, 48, 32, 256, 256, 384}, // medium
			{56, 56, 40, 56, 56, 40, 512, 512, 768}, // low+
			{64, 64, 48, 64, 64, 48, 512, 512, 768}, // low
		},
		{
			{16, 16, 8, 16, 16, 8, 24, 24, 36}, // film3+
			{16, 16, 8, 16, 16, 8, 48, 48, 72}, // film3
			{16, 16, 8, 16, 16, 8, 48, 48, 72}, // film2+
			{16, 16, 8, 16, 16, 8, 64, 64, 96}, // film2
			{16, 16, 8, 20, 20, 10, 80, 80, 128}, // film1.5
			{24, 24, 12, 24, 24, 12, 96, 96, 144}, // film1+
			{24, 24, 12, 24, 24, 12, 192, 192, 288}, // film1
			{32, 32, 24, 32, 32, 24, 128, 128, 192}, // high+
			{32, 32, 24, 32, 32, 24, 256, 256, 384}, // high
			{48, 48, 32, 48, 48, 32, 256, 256, 384}, // medium+
			{48, 48, 32, 48, 48, 32, 512, 512, 768}, // medium
			{56, 56, 40, 56, 56, 40, 512, 512, 768}, // low+
			{64, 64, 48, 64, 64, 48, 1024, 1024, 1536}, // low
		},
		{
			{16, 16, 8, 16, 16, 8, 24, 24, 36}, // film3+
			{16, 16, 8, 16, 16, 8, 48, 48, 72}, // film3
			{16, 16, 8, 16, 16, 8, 48, 48, 72}, // film2+
			{16, 16, 8, 16, 16, 8, 64, 64, 96}, // film2
			{16, 16, 10, 20, 20, 10, 80, 80, 128}, // film1.5
			{24, 24, 12, 24, 24, 12, 96, 96, 144}, // film1+
			{24, 24, 12, 24, 24, 12, 192, 192, 288}, // film1
			{32, 32, 24, 32, 32, 24, 128, 128, 192}, // high+
			{32, 32, 24, 32, 32, 24, 256, 256, 384}, // high
			{48, 48, 32, 48, 48, 32, 256, 256, 384}, // medium+
			{48, 48, 32, 48, 48, 32, 512, 512, 768}, // medium
			{56, 56, 40, 56, 56, 40, 512, 512, 768}, // low+
			{64, 64, 48, 64, 64, 48, 1024, 1024, 1536}, // low
		},
	},
}
